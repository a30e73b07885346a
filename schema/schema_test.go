package schema_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/userdb/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(
		schema.Field{Name: "name", Spec: schema.Validated(schema.String, schema.MinLength(3, "too short"))},
		schema.Field{Name: "age", Spec: schema.Primitive(schema.Number)},
		schema.Field{Name: "active", Spec: schema.Primitive(schema.Boolean)},
	)
	require.NoError(t, err)
	return s
}

func TestNewRejectsBadFields(t *testing.T) {
	_, err := schema.New(schema.Field{Name: "", Spec: schema.Primitive(schema.String)})
	assert.Error(t, err)

	_, err = schema.New(
		schema.Field{Name: "a", Spec: schema.Primitive(schema.String)},
		schema.Field{Name: "a", Spec: schema.Primitive(schema.Number)},
	)
	assert.Error(t, err)

	_, err = schema.New(schema.Field{Name: "a"})
	assert.Error(t, err, "zero FieldSpec has no type")

	assert.Panics(t, func() { schema.MustNew(schema.Field{Name: ""}) })
}

func TestFieldsKeepOrder(t *testing.T) {
	s := testSchema(t)
	assert.Equal(t, []string{"name", "age", "active"}, s.Fields())
	assert.True(t, s.Has("age"))
	assert.False(t, s.Has("_id"))
}

func TestSchemaIsImmutable(t *testing.T) {
	fields := []schema.Field{{Name: "name", Spec: schema.Primitive(schema.String)}}
	s, err := schema.New(fields...)
	require.NoError(t, err)

	fields[0].Name = "changed"
	assert.Equal(t, []string{"name"}, s.Fields())

	names := s.Fields()
	names[0] = "changed"
	assert.Equal(t, []string{"name"}, s.Fields())
}

func TestValidateKeepsDeclaredFields(t *testing.T) {
	s := testSchema(t)

	got, err := s.Validate(map[string]any{
		"name":   "alice",
		"age":    float64(30),
		"active": true,
		"extra":  "dropped",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "alice", "age": float64(30), "active": true}, got)
}

func TestValidateSkipsAbsentFields(t *testing.T) {
	s := testSchema(t)

	got, err := s.Validate(map[string]any{"age": 4})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"age": 4}, got)

	got, err = s.Validate(map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestValidateDoesNotAliasInput(t *testing.T) {
	s := testSchema(t)
	in := map[string]any{"name": "alice"}

	got, err := s.Validate(in)
	require.NoError(t, err)
	got["name"] = "bob"
	assert.Equal(t, "alice", in["name"])
}

func TestValidateTypeMismatch(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		doc     map[string]any
		field   string
		message string
	}{
		{map[string]any{"name": float64(1)}, "name", "invalid type for field name: expected String, got number"},
		{map[string]any{"age": "30"}, "age", "invalid type for field age: expected Number, got string"},
		{map[string]any{"active": "yes"}, "active", "invalid type for field active: expected Boolean, got string"},
		{map[string]any{"name": nil}, "name", "invalid type for field name: expected String, got null"},
		{map[string]any{"age": []any{1}}, "age", "invalid type for field age: expected Number, got array"},
	}
	for _, tc := range tests {
		t.Run(tc.message, func(t *testing.T) {
			_, err := s.Validate(tc.doc)
			var verr *schema.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Equal(t, tc.message, verr.Error())
		})
	}
}

func TestValidateRunsValidator(t *testing.T) {
	s := testSchema(t)

	_, err := s.Validate(map[string]any{"name": "al"})
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
	assert.Equal(t, "validation failed for field name: too short", verr.Message)
}

func TestValidateStopsAtFirstFailure(t *testing.T) {
	s := testSchema(t)

	// Both name and age are wrong; name is declared first.
	_, err := s.Validate(map[string]any{"age": "x", "name": "a"})
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestValidatorNotCalledOnTypeMismatch(t *testing.T) {
	called := false
	s := schema.MustNew(schema.Field{Name: "n", Spec: schema.Validated(schema.Number, func(any) string {
		called = true
		return ""
	})})

	_, err := s.Validate(map[string]any{"n": "one"})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestFieldSpecAccessors(t *testing.T) {
	p := schema.Primitive(schema.Boolean)
	assert.Equal(t, schema.Boolean, p.Type())
	assert.False(t, p.HasValidator())

	v := schema.Validated(schema.String, schema.MaxLength(2, ""))
	assert.Equal(t, schema.String, v.Type())
	assert.True(t, v.HasValidator())

	assert.Equal(t, "Type(9)", schema.Type(9).String())
}

func TestStringValidators(t *testing.T) {
	v := schema.All(
		schema.MinLength(2, ""),
		schema.MaxLength(5, ""),
		schema.Match(regexp.MustCompile(`^[a-z]+$`), "lowercase only"),
	)
	assert.Equal(t, "string length 1 is less than minLength 2", v("a"))
	assert.Equal(t, "string length 6 is greater than maxLength 5", v("abcdef"))
	assert.Equal(t, "lowercase only", v("ABC"))
	assert.Empty(t, v("abc"))

	// Length counts characters, not bytes.
	assert.Empty(t, schema.MaxLength(3, "")("héé"))
	// A character outside the Basic Multilingual Plane is one rune.
	assert.Empty(t, schema.MaxLength(3, "")("ab😀"))
	assert.Equal(t, "short", schema.MinLength(3, "short")("a😀"))
}

func TestNumberValidators(t *testing.T) {
	v := schema.All(schema.Minimum(0), schema.Maximum(100))
	assert.Equal(t, "-1 is less than minimum 0", v(float64(-1)))
	assert.Equal(t, "101 is greater than maximum 100", v(101))
	assert.Empty(t, v(float64(50)))
}

func TestOneOf(t *testing.T) {
	v := schema.OneOf("red", "green", 3)
	assert.Empty(t, v("red"))
	assert.Empty(t, v(float64(3)))
	assert.Equal(t, "value not in enum [red green 3]", v("blue"))
}
