package config

import (
	"fmt"
	"strings"
)

// IdentityConfig describes the identity provider tenant the dashboard
// authenticates against. Issuer and JWKS URLs follow the Azure AD
// layout; both the v1.0 and v2.0 issuer forms are accepted by the API
// because tokens arrive in either format depending on client config.
type IdentityConfig interface {
	GetTenantID() string
	GetClientID() string
	GetIssuerURL() string
	GetIssuerURLV1() string
	GetAudience() string
	GetScopes() []string
	GetRedirectURL() string
}

type Identity struct{}

var _ IdentityConfig = Identity{}

func (Identity) GetTenantID() string {
	return GetEnv("AZURE_TENANT_ID", "")
}

func (Identity) GetClientID() string {
	return GetEnv("AZURE_CLIENT_ID", "")
}

func (i Identity) GetIssuerURL() string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", i.GetTenantID())
}

func (i Identity) GetIssuerURLV1() string {
	return fmt.Sprintf("https://sts.windows.net/%s/", i.GetTenantID())
}

func (i Identity) GetAudience() string {
	if aud := GetEnv("API_AUDIENCE", ""); aud != "" {
		return aud
	}
	return fmt.Sprintf("api://%s", i.GetClientID())
}

func (i Identity) GetScopes() []string {
	scopes := GetEnv("API_SCOPES", "")
	if scopes == "" {
		return []string{fmt.Sprintf("api://%s/.default", i.GetClientID())}
	}
	return strings.Fields(scopes)
}

func (Identity) GetRedirectURL() string {
	return GetEnv("REDIRECT_URL", "http://localhost:3000/auth/callback")
}
