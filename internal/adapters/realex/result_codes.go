package realex

import (
	pkgerrors "github.com/kevin07696/realex-gateway/pkg/errors"
)

// ResultCodeInfo describes a gateway result code
type ResultCodeInfo struct {
	Code        string
	Description string
	Category    pkgerrors.ErrorCategory
	IsRetriable bool
}

var resultCodes = map[string]ResultCodeInfo{
	"00": {
		Code:        "00",
		Description: "Successful",
		Category:    pkgerrors.CategoryApproved,
	},
	"101": {
		Code:        "101",
		Description: "Declined by bank",
		Category:    pkgerrors.CategoryDeclined,
	},
	"102": {
		Code:        "102",
		Description: "Referral B",
		Category:    pkgerrors.CategoryDeclined,
	},
	"103": {
		Code:        "103",
		Description: "Referral A, card reported lost or stolen",
		Category:    pkgerrors.CategoryDeclined,
	},
	"107": {
		Code:        "107",
		Description: "Declined by fraud checks",
		Category:    pkgerrors.CategoryDeclined,
	},
	"110": {
		Code:        "110",
		Description: "3-D Secure authentication not completed",
		Category:    pkgerrors.CategoryAuthenticationFailed,
	},
	"508": {
		Code:        "508",
		Description: "Rebate exceeds the permitted amount",
		Category:    pkgerrors.CategoryInvalidRequest,
	},
	"666": {
		Code:        "666",
		Description: "Merchant account deactivated",
		Category:    pkgerrors.CategorySystemError,
	},
}

// resultFamilies classify codes by their leading digit
var resultFamilies = map[byte]ResultCodeInfo{
	'1': {Description: "Declined", Category: pkgerrors.CategoryDeclined},
	'2': {Description: "Communication error with the acquiring bank", Category: pkgerrors.CategoryNetworkError, IsRetriable: true},
	'3': {Description: "Gateway system error", Category: pkgerrors.CategorySystemError, IsRetriable: true},
	'5': {Description: "Invalid request", Category: pkgerrors.CategoryInvalidRequest},
	'6': {Description: "Merchant account configuration error", Category: pkgerrors.CategorySystemError},
}

// LookupResultCode returns information for a result code. Codes without their own
// entry are described by their family; unknown families are reported as system errors.
func LookupResultCode(code string) ResultCodeInfo {
	if info, ok := resultCodes[code]; ok {
		return info
	}
	if len(code) == 3 {
		if info, ok := resultFamilies[code[0]]; ok {
			info.Code = code
			return info
		}
	}
	return ResultCodeInfo{
		Code:        code,
		Description: "Unknown result code",
		Category:    pkgerrors.CategorySystemError,
	}
}
