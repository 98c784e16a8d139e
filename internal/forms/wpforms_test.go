package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWPFormsParseTypedFields(t *testing.T) {
	body := []byte(`{
		"form_data": {"id": 42, "settings": {"form_title": "Quote Request"}},
		"fields": [
			{"id": 0, "type": "name", "name": "Name", "value": "Bob Stone"},
			{"id": 1, "type": "email", "name": "Email", "value": "bob@example.com"},
			{"id": 2, "type": "phone", "name": "Phone", "value": "555-0101"},
			{"id": 3, "type": "textarea", "name": "Comment", "value": "Call me back"},
			{"id": 4, "type": "divider", "name": "Section", "value": "ignored"}
		]
	}`)

	sub, err := NewWPFormsProvider().Parse(body)
	require.NoError(t, err)

	assert.Equal(t, "42", sub.FormID)
	assert.Equal(t, "Quote Request", sub.FormName)
	assert.Equal(t, "bob@example.com", sub.Fields.Email)
	assert.Equal(t, "Bob Stone", sub.Fields.Name)
	assert.Equal(t, "555-0101", sub.Fields.Phone)
	assert.Equal(t, "Call me back", sub.Fields.Message)

	assert.Equal(t, "bob@example.com", sub.Raw["email"])
	assert.NotContains(t, sub.Raw, "section")
}

func TestWPFormsParsePrefersValueRaw(t *testing.T) {
	body := []byte(`{
		"form_data": {"id": 7},
		"fields": [
			{"id": 1, "type": "name", "name": "Name", "value": "B. Stone", "value_raw": "Bob Stone"}
		]
	}`)

	sub, err := NewWPFormsProvider().Parse(body)
	require.NoError(t, err)
	assert.Equal(t, "Bob Stone", sub.Fields.Name)
}

func TestWPFormsParseNameSubstringFallback(t *testing.T) {
	body := []byte(`{
		"form_data": {"id": 7},
		"fields": [
			{"id": 1, "type": "text", "name": "Work Email", "value": "w@example.com"}
		]
	}`)

	sub, err := NewWPFormsProvider().Parse(body)
	require.NoError(t, err)
	assert.Equal(t, "w@example.com", sub.Fields.Email)
}

func TestWPFormsParseRawKeyFromID(t *testing.T) {
	body := []byte(`{
		"form_data": {"id": 7},
		"fields": [
			{"id": 3, "type": "text", "name": "", "value": "anon"}
		]
	}`)

	sub, err := NewWPFormsProvider().Parse(body)
	require.NoError(t, err)
	assert.Equal(t, "anon", sub.Raw["field_3"])
}

func TestWPFormsParseRejectsEmptyFields(t *testing.T) {
	_, err := NewWPFormsProvider().Parse([]byte(`{"form_data": {"id": 7}, "fields": []}`))
	assert.Error(t, err)
}
