package transport

import (
	"testing"

	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    Query
	}{
		{"full address", "http://10.0.0.2:8080/oic/res?rt=intel.gas", Query{Host: "http://10.0.0.2:8080", ResourceType: "intel.gas"}},
		{"host only", "http://10.0.0.2:8080", Query{Host: "http://10.0.0.2:8080"}},
		{"multicast path", "/oic/res?rt=gw.sensor", Query{ResourceType: "gw.sensor"}},
		{"bare type", "gw.config", Query{ResourceType: "gw.config"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuery(tt.address)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryMatches(t *testing.T) {
	info := models.ResourceInfo{URI: models.URIGas, Types: []string{models.TypeGas}, Host: "http://10.0.0.2:8080"}

	assert.True(t, Query{}.Matches(info))
	assert.True(t, Query{Host: "http://10.0.0.2:8080/", ResourceType: models.TypeGas}.Matches(info))
	assert.False(t, Query{Host: "http://10.0.0.3:8080"}.Matches(info))
	assert.False(t, Query{ResourceType: models.TypeFan}.Matches(info))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "http://10.0.0.2:8080", HostOf("http://10.0.0.2:8080/a/fan"))
	assert.Equal(t, "loop://fan", HostOf("loop://fan"))
	assert.Equal(t, "fan-node", HostOf("fan-node/"))
}
