package enums

import "fmt"

// CareType enumerates the care levels Sagebrook communities offer.
type CareType string

const (
	CareTypeIndependentLiving CareType = "independent_living"
	CareTypeAssistedLiving    CareType = "assisted_living"
	CareTypeMemoryCare        CareType = "memory_care"
	CareTypeSkilledNursing    CareType = "skilled_nursing"
	CareTypeRespiteCare       CareType = "respite_care"
)

var validCareTypes = []CareType{
	CareTypeIndependentLiving,
	CareTypeAssistedLiving,
	CareTypeMemoryCare,
	CareTypeSkilledNursing,
	CareTypeRespiteCare,
}

// String implements fmt.Stringer.
func (c CareType) String() string {
	return string(c)
}

// IsValid reports whether the care type is recognized.
func (c CareType) IsValid() bool {
	for _, candidate := range validCareTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCareType converts a raw string into a CareType.
func ParseCareType(value string) (CareType, error) {
	for _, candidate := range validCareTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid care type %q", value)
}
