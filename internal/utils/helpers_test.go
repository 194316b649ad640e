package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestParseOptionalYMD(t *testing.T) {
	d, err := ParseOptionalYMD(" 2025-11-08 ")
	require.NoError(t, err)
	assert.Equal(t, "2025-11-08", d.Format("2006-01-02"))

	d, err = ParseOptionalYMD("")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = ParseOptionalYMD("11/08/2025")
	assert.Error(t, err)
}

func TestStructConversion(t *testing.T) {
	type item struct {
		Name      string   `json:"name"`
		Emissions *float64 `json:"emissions"`
	}
	v := 1.5
	s, err := ToStruct(map[string]any{"items": []item{{Name: "TEA", Emissions: &v}, {Name: "X"}}})
	require.NoError(t, err)

	items := s.Fields["items"].GetListValue().GetValues()
	require.Len(t, items, 2)
	assert.Equal(t, "TEA", items[0].GetStructValue().Fields["name"].GetStringValue())
	_, isNull := items[1].GetStructValue().Fields["emissions"].GetKind().(*structpb.Value_NullValue)
	assert.True(t, isNull)

	var back struct {
		Items []item `json:"items"`
	}
	require.NoError(t, FromStruct(s, &back))
	require.Len(t, back.Items, 2)
	assert.Equal(t, 1.5, *back.Items[0].Emissions)
	assert.Nil(t, back.Items[1].Emissions)

	_, err = ToStruct([]int{1})
	assert.Error(t, err)
	assert.NoError(t, FromStruct(nil, &back))
}
