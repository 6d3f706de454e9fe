package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return NewSchema(
		FieldSpec{Name: "Ticket", Type: FieldText},
		FieldSpec{Name: "Status", Type: FieldEnum, Editable: true, Options: []string{"Open", "Completed"}},
		FieldSpec{Name: "Due", Type: FieldDate, Editable: true},
		FieldSpec{Name: "Urgent", Type: FieldBool, Editable: true},
		FieldSpec{Name: "Assignee", Type: FieldRef, Editable: true},
	)
}

func TestSchema_FieldLookupAndOrder(t *testing.T) {
	s := testSchema()

	fields := s.Fields()
	require.Len(t, fields, 5)
	assert.Equal(t, "Ticket", fields[0].Name)
	assert.Equal(t, "Assignee", fields[4].Name)

	spec, ok := s.Field("Status")
	require.True(t, ok)
	assert.Equal(t, FieldEnum, spec.Type)

	_, ok = s.Field("Nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"Status", "Due", "Urgent", "Assignee"}, s.EditableFields())
}

func TestSchema_Validate(t *testing.T) {
	s := testSchema()

	cases := []struct {
		name    string
		field   string
		value   string
		wantErr bool
	}{
		{"enum member", "Status", "Completed", false},
		{"enum outsider", "Status", "Closed", true},
		{"valid date", "Due", "2026-09-01", false},
		{"empty date allowed", "Due", "", false},
		{"bad date layout", "Due", "01/09/2026", true},
		{"bool true", "Urgent", "true", false},
		{"bool other", "Urgent", "yes", true},
		{"ref is free-form here", "Assignee", "u-17", false},
		{"read-only field", "Ticket", "T-9", true},
		{"unknown field", "Nope", "x", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Validate(tc.field, tc.value)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := Record{ID: "T-1001", Values: map[string]string{"Status": "Open"}}
	dup := r.Clone()
	dup.Values["Status"] = "Completed"

	assert.Equal(t, "Open", r.Value("Status"))
	assert.Equal(t, "", r.Value("Missing"))
}

func TestStaticResolver_RoundTrip(t *testing.T) {
	r := NewStaticResolver(map[string]map[string]string{
		"Assignee": {"u-17": "Amy Okafor", "u-23": "Ben Aldrin"},
	})

	label, ok := r.Label("Assignee", "u-17")
	require.True(t, ok)
	assert.Equal(t, "Amy Okafor", label)

	id, ok := r.ID("Assignee", "Ben Aldrin")
	require.True(t, ok)
	assert.Equal(t, "u-23", id)

	_, ok = r.Label("Assignee", "u-99")
	assert.False(t, ok)
	_, ok = r.Label("Team", "u-17")
	assert.False(t, ok)

	assert.Equal(t, []string{"Amy Okafor", "Ben Aldrin"}, r.Labels("Assignee"))
	assert.Nil(t, r.Labels("Team"))
}
