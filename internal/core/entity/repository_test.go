package entity

import (
	"os"
	"path/filepath"
	"testing"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/stretchr/testify/require"
)

const customerYAML = `
name: customer
kind: dimension
order: 10
business_key: customer_id
policy: versioning
tracked: [customer_name, email, phone, address]
untracked: [city, state, country, postal_code]
`

const productYAML = `
name: product
order: 20
business_key: product_id
policy: versioning
tracked: [product_name, category, brand, price]
untracked: [subcategory, cost]
`

const orderYAML = `
name: order
kind: fact
natural_key: order_id
references:
  - column: customer_id
    entity: customer
  - column: product_id
    entity: product
measures: [quantity, unit_price]
attributes: [order_status]
derived:
  - name: total_amount
    op: product
    args: [quantity, unit_price]
  - name: tax_amount
    op: scale
    args: [total_amount]
    factor: "0.1"
  - name: shipping_amount
    op: constant
    factor: "5.0"
`

func writeEntity(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadDir_OrdersDimensionsAndFacts(t *testing.T) {
	dir := t.TempDir()
	writeEntity(t, dir, "order.yaml", orderYAML)
	writeEntity(t, dir, "product.yml", productYAML)
	writeEntity(t, dir, "customer.yaml", customerYAML)
	writeEntity(t, dir, "README.md", "not an entity")
	writeEntity(t, dir, "empty.yaml", "# nothing here\n")

	reg, err := LoadDir(dir)
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())

	dims := reg.Dimensions()
	require.Len(t, dims, 2)
	require.Equal(t, "customer", dims[0].Name)
	require.Equal(t, "product", dims[1].Name)
	require.Equal(t, PolicyVersioning, dims[1].Policy, "policy defaults to versioning")

	facts := reg.Facts()
	require.Len(t, facts, 1)
	require.Equal(t, "customer_key", facts[0].References[0].ReferenceName())
	require.NotEmpty(t, facts[0].Fingerprint)

	require.Equal(t, map[string]Policy{"customer": PolicyVersioning, "product": PolicyVersioning}, reg.Policies())
}

func TestLoadDir_MissingDirIsEmpty(t *testing.T) {
	reg, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	require.Zero(t, reg.Len())
}

func TestLoadDir_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	writeEntity(t, dir, "a.yaml", customerYAML)
	writeEntity(t, dir, "b.yaml", customerYAML)

	_, err := LoadDir(dir)
	require.ErrorContains(t, err, "duplicate entity name")
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "versioning without tracked",
			yaml: "name: c\nbusiness_key: id\npolicy: versioning\nuntracked: [a]\n",
			want: "requires at least one tracked column",
		},
		{
			name: "business key as attribute",
			yaml: "name: c\nbusiness_key: id\ntracked: [id]\n",
			want: "collides with the business key",
		},
		{
			name: "unknown policy",
			yaml: "name: c\nbusiness_key: id\npolicy: type_3\ntracked: [a]\n",
			want: "unsupported policy",
		},
		{
			name: "unknown kind",
			yaml: "name: c\nkind: bridge\n",
			want: "unsupported kind",
		},
		{
			name: "fact without natural key",
			yaml: "name: f\nkind: fact\nmeasures: [q]\n",
			want: "natural_key must not be empty",
		},
		{
			name: "derived unknown op",
			yaml: "name: f\nkind: fact\nnatural_key: id\nmeasures: [q]\nderived:\n  - name: x\n    op: avg\n    args: [q]\n",
			want: "unsupported op",
		},
		{
			name: "derived unknown arg",
			yaml: "name: f\nkind: fact\nnatural_key: id\nmeasures: [q]\nderived:\n  - name: x\n    op: sum\n    args: [p]\n",
			want: "unknown argument",
		},
		{
			name: "scale without factor",
			yaml: "name: f\nkind: fact\nnatural_key: id\nmeasures: [q]\nderived:\n  - name: x\n    op: scale\n    args: [q]\n",
			want: "invalid factor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNewRegistry_RejectsDanglingReference(t *testing.T) {
	order, err := Parse([]byte(orderYAML))
	require.NoError(t, err)
	customer, err := Parse([]byte(customerYAML))
	require.NoError(t, err)

	_, err = NewRegistry([]*Definition{order, customer})
	require.ErrorContains(t, err, `unknown entity "product"`)
}

func TestDefinition_Validate(t *testing.T) {
	customer, err := Parse([]byte(customerYAML))
	require.NoError(t, err)

	err = customer.Validate(v1.Record{"customer_id": "C1", "customer_name": "Alice"})
	require.ErrorIs(t, err, dserr.ErrValidation)
	var ve *dserr.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, []string{"email", "phone", "address"}, ve.Fields)

	full := v1.Record{"customer_id": "C1", "customer_name": "Alice", "email": nil, "phone": "", "address": "", "extra": 1}
	require.NoError(t, customer.Validate(full))

	customer.Strict = true
	err = customer.Validate(full)
	require.ErrorAs(t, err, &ve)
	require.Equal(t, []string{"extra"}, ve.Fields)

	full["customer_id"] = ""
	customer.Strict = false
	require.ErrorIs(t, customer.Validate(full), dserr.ErrValidation)
}

func TestDefinition_ProjectCarriesAbsentAsNil(t *testing.T) {
	customer, err := Parse([]byte(customerYAML))
	require.NoError(t, err)

	attrs := customer.Project(v1.Record{"customer_id": "C1", "customer_name": "Alice", "unrelated": true})
	require.Len(t, attrs, 8)
	require.Equal(t, "Alice", attrs["customer_name"])
	require.Nil(t, attrs["city"])
	require.NotContains(t, attrs, "customer_id")
	require.NotContains(t, attrs, "unrelated")
}

func TestDefinition_ChangeColumns(t *testing.T) {
	customer, err := Parse([]byte(customerYAML))
	require.NoError(t, err)
	require.Equal(t, customer.Tracked, customer.ChangeColumns())

	customer.Policy = PolicyOverwrite
	require.Len(t, customer.ChangeColumns(), 8)
}

func TestLoadDir_ShippedEntityConfig(t *testing.T) {
	reg, err := LoadDir(filepath.Join("..", "..", "..", "config", "entities"))
	require.NoError(t, err)

	product, ok := reg.Get("product")
	require.True(t, ok)
	require.Equal(t, PolicyVersioning, product.Policy)
	require.Equal(t, []string{"name", "category", "brand", "price"}, product.Tracked)
	require.Equal(t, []string{"subcategory", "cost"}, product.Untracked)

	order, ok := reg.Get("order")
	require.True(t, ok)
	ops := make(map[string]string, len(order.Derived))
	for _, dm := range order.Derived {
		ops[dm.Name] = dm.Op
	}
	require.Equal(t, map[string]string{
		"total_amount":    OpProduct,
		"discount_amount": OpConstant,
		"tax_amount":      OpScale,
		"shipping_amount": OpConstant,
	}, ops)
	require.Equal(t, []string{"order_status", "channel"}, order.Attributes)
}
