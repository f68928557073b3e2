/*
Package schema defines type expressions and declarative model definitions.

# Type Expressions

A type expression names a registered type, optionally namespaced with dots
and optionally marked as an array:

	int
	text[]
	shop.Customer
	shop.Line[]

Names are case-insensitive; ParseType lower-cases them:

	td, err := schema.ParseType("Shop.Line[]")
	// td == TypeDescriptor{Name: "shop.line", IsArray: true}

# Model Definitions

A model definition in YAML:

	model: shop.Order

	attributes:
	  id:       { type: int, primary: true }
	  customer: { type: shop.Customer }
	  lines:    shop.Line[]
	  status:   { type: text, default: pending, not_null: true }
	  placed:   { type: date, default: { expr: "now()" } }
	  email:    { type: text, alias: email_address, required: true }

	methods:
	  lineCount: 'len(self.lines ?? [])'

A bare type expression is shorthand for { type: <expr> }. Attribute order is
kept: primary attributes are ordered as declared.

# Attribute Options

  - type:     Type expression (required)
  - default:  Literal value, or { expr: ... } evaluated lazily
  - primary:  Part of the instance identity
  - alias:    Alternate key accepted when importing JSON
  - required: Assigning an undefined value is rejected
  - not_null: Assigning null is rejected
  - parse:    Expression applied to the stored value on read
  - compile:  Expression applied to the incoming value on write

Attribute and method names starting with an underscore are reserved.

# Parsing

	def, err := schema.ParseFile("models/order.yaml")
	defs, err := schema.ParseDir("models/")

All definitions are validated on parse. Referenced model types are not
resolved here; the engine resolves them when values are assigned.
*/
package schema
