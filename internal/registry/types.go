package registry

// AuthType identifies how the backend client authenticates against a
// deployment. The set is closed and decided once at load time.
type AuthType string

const (
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
)

// AuthConfig is the raw auth sub-object from the registry YAML. Exactly one
// shape is valid per type: basic requires username and password, bearer
// requires a token.
type AuthConfig struct {
	Type     AuthType `yaml:"type" validate:"required,oneof=basic bearer"`
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	Token    string   `yaml:"token,omitempty"`
}

// InstanceConfig is one deployment definition as it appears in the registry
// YAML. String fields may contain ${ENV_VAR} placeholders which are resolved
// before validation.
type InstanceConfig struct {
	Host       string     `yaml:"host" validate:"required,http_url"`
	APIVersion string     `yaml:"api_version,omitempty"`
	VerifySSL  *bool      `yaml:"verify_ssl,omitempty"`
	Auth       AuthConfig `yaml:"auth" validate:"required"`
}

// Instance is the immutable, fully-resolved form of a deployment after a
// successful load. Defaults are applied: api_version "v1", verify_ssl true.
type Instance struct {
	Key        string
	Host       string
	APIVersion string
	VerifySSL  bool
	Auth       AuthConfig
}

// Descriptor is the secret-free view of an instance, safe to return to
// callers. It carries the auth type but never credential material.
type Descriptor struct {
	Key        string `json:"instance"`
	Host       string `json:"host"`
	APIVersion string `json:"api_version"`
	VerifySSL  bool   `json:"verify_ssl"`
	AuthType   string `json:"auth_type"`
}

// Describe returns the secret-free descriptor for an instance.
func (i Instance) Describe() Descriptor {
	return Descriptor{
		Key:        i.Key,
		Host:       i.Host,
		APIVersion: i.APIVersion,
		VerifySSL:  i.VerifySSL,
		AuthType:   string(i.Auth.Type),
	}
}
