package config

type IdentityConfig interface {
	GetExternalIssuer() string
	GetExternalAudience() string
}

type Identity struct{}

var _ IdentityConfig = Identity{}

// GetExternalIssuer is the OIDC issuer of the legacy identity system whose
// tokens the session bridge accepts. Empty disables the bridge.
func (Identity) GetExternalIssuer() string {
	return GetEnv("EXTERNAL_OIDC_ISSUER", "")
}

func (Identity) GetExternalAudience() string {
	return GetEnv("EXTERNAL_OIDC_AUDIENCE", "")
}
