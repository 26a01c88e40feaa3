package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTier(t *testing.T) {
	clinician := []string{"doctor", "clinician", "admin"}
	for _, role := range clinician {
		assert.Equal(t, TierClinician, ResolveTier(role), role)
	}

	patient := []string{"", "patient", "doctor_pending", "clinician_pending", "Doctor", "ADMIN", " admin", "nurse", "superuser"}
	for _, role := range patient {
		assert.Equal(t, TierPatient, ResolveTier(role), "role %q", role)
	}
}

func TestAudienceTier_String(t *testing.T) {
	assert.Equal(t, "patient", TierPatient.String())
	assert.Equal(t, "clinician", TierClinician.String())
}
