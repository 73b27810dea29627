package generator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/schemafill/internal/parser"
)

const shopSchema = `
enum Status {
  DRAFT
  LIVE
}

model Tag {
  id   String @id
  name String
}

model Product {
  id        String    @id @default(auto()) @map("_id")
  title     String
  price     Float     @default(9.99)
  stock     Int       @default(0)
  status    Status    @default(DRAFT)
  labels    Status[]
  tags      Tag[]
  owner     Tag?
  meta      Json?
  blob      Bytes
  seenAt    DateTime?
  mystery   Widget
  featured  Boolean   @default(false)
  createdAt DateTime  @default(now())
}
`

func TestGenerate_TypeMapping(t *testing.T) {
	s := parser.Parse(shopSchema)
	vs := Generate(s, s.Model("Product"))

	assert.Equal(t, TypeObject, vs.Type)
	assert.Nil(t, vs.Property("id"), "identity fields are excluded")

	assert.Equal(t, TypeString, vs.Property("title").Type)
	assert.Equal(t, TypeNumber, vs.Property("price").Type)
	assert.Equal(t, 9.99, vs.Property("price").Default)
	assert.Equal(t, int64(0), vs.Property("stock").Default)

	status := vs.Property("status")
	assert.Equal(t, TypeString, status.Type)
	assert.Equal(t, []string{"DRAFT", "LIVE"}, status.Enum)
	assert.Equal(t, "DRAFT", status.Default)

	labels := vs.Property("labels")
	assert.Equal(t, TypeArray, labels.Type)
	require.NotNil(t, labels.Items)
	assert.Equal(t, TypeString, labels.Items.Type)
	assert.Equal(t, []string{"DRAFT", "LIVE"}, labels.Items.Enum)

	tags := vs.Property("tags")
	assert.Equal(t, TypeArray, tags.Type)
	assert.Equal(t, TypeObject, tags.Items.Type)

	assert.Equal(t, TypeObject, vs.Property("owner").Type)
	assert.Equal(t, TypeObject, vs.Property("meta").Type)
	assert.Equal(t, TypeString, vs.Property("blob").Type)
	assert.Equal(t, FormatDateTime, vs.Property("seenAt").Format)
	assert.Equal(t, TypeString, vs.Property("mystery").Type, "unknown types fall back to string")
	assert.Equal(t, false, vs.Property("featured").Default)

	created := vs.Property("createdAt")
	assert.Equal(t, FormatDateTime, created.Format)
	assert.Nil(t, created.Default)
}

func TestGenerate_RequiredSet(t *testing.T) {
	s := parser.Parse(shopSchema)
	m := s.Model("Product")
	vs := Generate(s, m)

	var want []string
	for _, f := range m.Fields {
		if !f.ID && !f.Optional && !f.HasDefault() && !f.Array {
			want = append(want, f.Name)
		}
	}
	assert.Equal(t, want, vs.Required)
	assert.Equal(t, []string{"title", "blob", "mystery", "createdAt"}, vs.Required)
	assert.NotContains(t, vs.Required, "id")
}

func TestGenerate_PropertyOrderFollowsDeclaration(t *testing.T) {
	s := parser.Parse(shopSchema)
	vs := Generate(s, s.Model("Product"))
	assert.Equal(t, []string{
		"title", "price", "stock", "status", "labels", "tags", "owner",
		"meta", "blob", "seenAt", "mystery", "featured", "createdAt",
	}, vs.PropertyNames())
}

func TestGenerate_Defaults(t *testing.T) {
	s := parser.Parse(shopSchema)
	vs := Generate(s, s.Model("Product"))
	assert.Equal(t, []FieldDefault{
		{Field: "price", Value: 9.99},
		{Field: "stock", Value: int64(0)},
		{Field: "status", Value: "DRAFT"},
		{Field: "featured", Value: false},
	}, vs.Defaults())
}

func TestGenerate_UserScenario(t *testing.T) {
	s := parser.Parse(`model User {
  id String @id
  email String
  isActive Boolean @default(true)
  createdAt DateTime @default(now())
}`)
	vs := Generate(s, s.Model("User"))

	data, err := vs.MarshalIndent()
	require.NoError(t, err)
	assert.JSONEq(t, `{
  "type": "object",
  "properties": {
    "email": {"type": "string"},
    "isActive": {"type": "boolean", "default": true},
    "createdAt": {"type": "string", "format": "date-time"}
  },
  "required": ["email", "createdAt"]
}`, string(data))
	assert.Equal(t, byte('\n'), data[len(data)-1])
}

func TestGenerate_EmptyRequiredEncodesArray(t *testing.T) {
	s := parser.Parse(`model Note { id String @id
  body String? }`)
	vs := Generate(s, s.Model("Note"))

	var doc map[string]any
	data, err := json.Marshal(vs)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, []any{}, doc["required"])
}

func TestGenerateAll(t *testing.T) {
	s := parser.Parse(shopSchema)
	all := GenerateAll(s)
	assert.Len(t, all, 2)
	assert.Contains(t, all, "Tag")
	assert.Contains(t, all, "Product")
}
