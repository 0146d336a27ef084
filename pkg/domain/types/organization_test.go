package types_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

func TestOrganizationID_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      types.OrganizationID
		wantErr bool
	}{
		{name: "simple", id: "acme"},
		{name: "with hyphen and underscore", id: "acme-corp_01"},
		{name: "uppercase", id: "ACME"},
		{name: "max length", id: types.OrganizationID(strings.Repeat("a", 64))},
		{name: "empty", id: "", wantErr: true},
		{name: "too long", id: types.OrganizationID(strings.Repeat("a", 65)), wantErr: true},
		{name: "leading hyphen", id: "-acme", wantErr: true},
		{name: "slash", id: "acme/evil", wantErr: true},
		{name: "space", id: "acme corp", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if tt.wantErr {
				gt.Value(t, err).NotNil()
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestConfigurationID(t *testing.T) {
	t.Run("generated ID is valid and unique", func(t *testing.T) {
		a := types.NewConfigurationID()
		b := types.NewConfigurationID()
		gt.NoError(t, a.Validate())
		gt.V(t, a).NotEqual(b)
	})

	t.Run("empty is invalid", func(t *testing.T) {
		gt.Value(t, types.ConfigurationID("").Validate()).NotNil()
	})

	t.Run("non UUID is invalid", func(t *testing.T) {
		gt.Value(t, types.ConfigurationID("not-a-uuid").Validate()).NotNil()
	})
}
