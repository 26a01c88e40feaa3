package assistant

// AudienceTier selects how strict prompts and reply post-processing are.
type AudienceTier int

const (
	// TierPatient is the restrictive default: lay language, no diagnosis,
	// disclaimer on every reply.
	TierPatient AudienceTier = iota
	// TierClinician allows clinical terminology and differential diagnosis.
	TierClinician
)

func (t AudienceTier) String() string {
	if t == TierClinician {
		return "clinician"
	}
	return "patient"
}

// ResolveTier maps an account role to an audience tier. Only the exact
// strings doctor, clinician and admin yield TierClinician; everything else,
// including pending roles and the empty string, yields TierPatient.
func ResolveTier(role string) AudienceTier {
	switch role {
	case "doctor", "clinician", "admin":
		return TierClinician
	default:
		return TierPatient
	}
}
