package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEstimateStrict(t *testing.T) {
	raw := `{"item_name":"Milk","emissions_kg_co2e":1.2,"confidence":0.7,"methodology":"LCA average","references":["https://example.org/a"]}`
	got, err := DecodeEstimate([]byte(raw), nil)
	require.NoError(t, err)
	assert.Equal(t, "Milk", got.ItemName)
	require.NotNil(t, got.EmissionsKgCO2e)
	assert.Equal(t, 1.2, *got.EmissionsKgCO2e)
	require.NotNil(t, got.Confidence)
	assert.Equal(t, 0.7, *got.Confidence)
	assert.Equal(t, []string{"https://example.org/a"}, got.References)
}

func TestDecodeEstimateLenient(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		emissions  *float64
		confidence *float64
		refs       []string
	}{
		{
			name:      "numbers as strings",
			raw:       `{"emissions_kg_co2e":"0.8 kg","confidence":"0.5"}`,
			emissions: f(0.8), confidence: f(0.5), refs: []string{},
		},
		{
			name:      "percentage confidence and string reference",
			raw:       `{"emissions_kg_co2e":2,"confidence":80,"references":"https://x.test"}`,
			emissions: f(2), confidence: f(0.8), refs: []string{"https://x.test"},
		},
		{
			name: "garbage values become null",
			raw:  `{"emissions_kg_co2e":"unknown","confidence":"high","methodology":42,"references":[1,"https://y.test"]}`,
			refs: []string{"https://y.test"},
		},
		{
			name: "negative emissions rejected",
			raw:  `{"emissions_kg_co2e":-3}`,
			refs: []string{},
		},
		{
			name:      "code fenced",
			raw:       "```json\n{\"emissions_kg_co2e\":1.5}\n```",
			emissions: f(1.5), refs: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEstimate([]byte(tt.raw), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.emissions, got.EmissionsKgCO2e)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.Equal(t, tt.refs, got.References)
		})
	}
}

func TestDecodeEstimateMalformed(t *testing.T) {
	for _, raw := range []string{"", "not json", "[1,2]", `"text"`} {
		_, err := DecodeEstimate([]byte(raw), nil)
		assert.Error(t, err, raw)
	}
}

func TestDecodeBatch(t *testing.T) {
	raw := `{"items":[
		{"item_name":"Bananas","emissions_kg_co2e":0.9},
		{"item_name":"Milk","emissions_kg_co2e":"1.4"},
		{"item_name":"","emissions_kg_co2e":3},
		{"emissions_kg_co2e":3},
		{"item_name":"Mystery","emissions_kg_co2e":null}
	]}`
	got, err := DecodeBatch([]byte(raw), nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Bananas", got[0].ItemName)
	assert.Equal(t, 1.4, *got[1].EmissionsKgCO2e)
	assert.Equal(t, "Mystery", got[2].ItemName)
	assert.Nil(t, got[2].EmissionsKgCO2e)

	_, err = DecodeBatch([]byte("nope"), nil)
	assert.Error(t, err)

	for _, reply := range []string{"null", "[]", `"x"`, "42"} {
		_, err = DecodeBatch([]byte(reply), nil)
		assert.Error(t, err, "reply %s", reply)
		_, err = DecodeEstimate([]byte(reply), nil)
		assert.Error(t, err, "reply %s", reply)
	}
}

func TestSanitizeRejectsNonObjects(t *testing.T) {
	_, _, err := SanitizeBatch([]byte("null"))
	assert.ErrorIs(t, err, errNotObject)
	_, _, err = SanitizeEstimate([]byte("null"))
	assert.ErrorIs(t, err, errNotObject)
}

func TestBuildEstimateRequest(t *testing.T) {
	req := BuildEstimateRequest("Oat milk", "1L carton", []string{"Oatly: 0.3 kg CO2e per litre (https://o.test)"})
	require.Len(t, req.Messages, 2)
	assert.True(t, req.JSON)
	assert.Equal(t, DefaultTemperature, req.Temperature)
	user := req.Messages[1].Content
	assert.True(t, strings.HasPrefix(user, "Estimate the carbon emissions for the product 'Oat milk'."))
	assert.Contains(t, user, "\nAdditional context:\n1L carton")
	assert.Contains(t, user, "\nSupporting evidence:\n- Oatly: 0.3 kg CO2e per litre (https://o.test)")

	bare := BuildEstimateRequest("Tea", " ", nil)
	assert.NotContains(t, bare.Messages[1].Content, "Additional context")
	assert.NotContains(t, bare.Messages[1].Content, "Supporting evidence")
}

func TestBuildBatchRequest(t *testing.T) {
	req, kept := BuildBatchRequest([]BatchItem{
		{ItemName: "Eggs"},
		{ItemName: "  "},
		{ItemName: "Rice", Context: "5kg bag"},
	}, "grocery receipt")
	require.Len(t, kept, 2)
	assert.Equal(t, BatchItem{ItemName: "Eggs", Context: "grocery receipt"}, kept[0])
	assert.Equal(t, BatchItem{ItemName: "Rice", Context: "5kg bag"}, kept[1])
	assert.Contains(t, req.Messages[1].Content, `"item_name":"Eggs"`)

	_, none := BuildBatchRequest([]BatchItem{{ItemName: ""}}, "")
	assert.Empty(t, none)
}

func f(v float64) *float64 { return &v }
