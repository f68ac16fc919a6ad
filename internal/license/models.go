package license

import "time"

// Subscription statuses.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// Verify outcomes. Denials are expected business results, not faults.
const (
	VerifyStatusVerified    = "verified"
	VerifyStatusNewDevice   = "new_device_registered"
	VerifyReasonExpired     = "expired"
	VerifyReasonDeviceLimit = "device_limit"
)

// Plans and their module bundles.
const (
	PlanBasic     = "basic"
	PlanFullVet   = "full_vet"
	PlanFullHuman = "full_human"
)

// PlanModules maps a plan to the feature modules it licenses. Unknown plans
// fall back to core only.
func PlanModules(plan string) []string {
	switch plan {
	case PlanFullVet:
		return []string{"core", "ultrasound", "cardio", "prescription", "lab_vet", "financial"}
	case PlanFullHuman:
		return []string{"core", "ultrasound", "cardio", "prescription", "ophthalmo_human", "financial"}
	case PlanBasic:
		return []string{"core", "prescription", "ultrasound"}
	default:
		return []string{"core"}
	}
}

// Subscription is the cloud-side license record, one per user.
type Subscription struct {
	UID            string
	Email          string
	ClinicName     string
	Plan           string
	Status         string
	StartDate      time.Time
	ExpirationDate time.Time
	DeviceIDs      []string
	MaxDevices     int
}

// HasDevice reports whether the fingerprint is already bound.
func (s Subscription) HasDevice(deviceID string) bool {
	for _, id := range s.DeviceIDs {
		if id == deviceID {
			return true
		}
	}
	return false
}

// VerifyResult is the typed outcome of a device verification. Callers must
// branch on it: anything other than verified/new_device_registered is a hard
// login rejection.
type VerifyResult struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Allowed reports whether the login may proceed.
func (r VerifyResult) Allowed() bool { return r.Success }

// CreateLicenseInput carries the admin-invoked issuance request.
type CreateLicenseInput struct {
	Email      string
	Password   string
	Plan       string
	Practice   string
	VetName    string
	ClinicName string
}

// CreateLicenseResult reports the issued license.
type CreateLicenseResult struct {
	UID     string `json:"uid"`
	Message string `json:"message"`
}
