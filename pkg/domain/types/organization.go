package types

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var organizationIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// OrganizationID identifies the tenant that owns risk configurations
type OrganizationID string

// Validate checks if the OrganizationID is valid
func (o OrganizationID) Validate() error {
	if o == "" {
		return goerr.New("organization ID cannot be empty")
	}
	if !organizationIDPattern.MatchString(string(o)) {
		return goerr.New("organization ID must be alphanumeric with hyphens or underscores", goerr.V("id", o))
	}
	return nil
}

// String returns the string representation of OrganizationID
func (o OrganizationID) String() string {
	return string(o)
}

// ConfigurationID identifies a risk configuration aggregate
type ConfigurationID string

// NewConfigurationID generates a new random ConfigurationID
func NewConfigurationID() ConfigurationID {
	return ConfigurationID(uuid.New().String())
}

// Validate checks if the ConfigurationID is valid
func (c ConfigurationID) Validate() error {
	if c == "" {
		return goerr.New("configuration ID cannot be empty")
	}
	if _, err := uuid.Parse(string(c)); err != nil {
		return goerr.Wrap(err, "configuration ID must be a UUID", goerr.V("id", c))
	}
	return nil
}

// String returns the string representation of ConfigurationID
func (c ConfigurationID) String() string {
	return string(c)
}
