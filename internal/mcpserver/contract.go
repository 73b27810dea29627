package mcpserver

// SchemaLanguage describes the schema language accepted by the parser and
// how declarations map to validation schemas.
const SchemaLanguage = `# Schema Language

Schema sources are ` + "`" + `.prisma` + "`" + ` files. Only two block kinds are read;
every other top-level block (` + "`" + `datasource` + "`" + `, ` + "`" + `generator` + "`" + `, ` + "`" + `type` + "`" + `, ` + "`" + `view` + "`" + `)
is skipped with its body.

## Enums

` + "```" + `prisma
enum Role {
  USER
  ADMIN
}
` + "```" + `

Every token on a body line is a value. ` + "`" + `@` + "`" + ` attributes and ` + "`" + `@@` + "`" + ` directives are ignored.

## Models

` + "```" + `prisma
model UserProfile {
  id        String   @id
  email     String   @unique
  nickname  String?
  role      Role     @default(USER)
  isActive  Boolean  @default(true)
  tags      String[]
  createdAt DateTime @default(now())

  @@map("user_profiles")
}
` + "```" + `

A field line is ` + "`" + `<name> <Type>[[]][?] [attributes...]` + "`" + `.

- ` + "`" + `?` + "`" + ` marks the field optional.
- ` + "`" + `[]` + "`" + ` marks a list.
- ` + "`" + `@id` + "`" + ` fields are identity fields and never appear in validation schemas.
- ` + "`" + `@@map("name")` + "`" + ` names the storage collection explicitly.

## Types

| Declared | Validation type |
|---|---|
| String, Bytes | string |
| Int, BigInt, Float, Decimal | number |
| Boolean | boolean |
| DateTime | string, format date-time |
| Json | object |
| enum name | string with allowed values |
| model name | object |
| anything else | string |

## Defaults

` + "`" + `@default(...)` + "`" + ` payloads resolve to literals: quoted strings, ` + "`" + `true` + "`" + `/` + "`" + `false` + "`" + `,
integers, decimals and bare identifiers (enum members). Function calls such as
` + "`" + `now()` + "`" + ` or ` + "`" + `uuid()` + "`" + ` produce no default in the validation schema.

## Required

A field is required when it is not optional, has no literal default and is
not a list.

## Backfill

For each model with literal defaults the backfill command finds the stored
collection (explicit ` + "`" + `@@map` + "`" + ` name, then lower-case, plural, kebab-case
variants) and sets every defaulted field that is missing or null. Existing
values, including ` + "`" + `false` + "`" + `, ` + "`" + `0` + "`" + ` and empty strings, are never changed.
`
