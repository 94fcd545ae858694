package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart(t *testing.T) {
	tea := menuItem("Tea", 30)
	cake := menuItem("Cake", 70)

	var cart Cart
	assert.True(t, cart.Empty())

	cart.AddItem(tea)
	cart.AddItem(cake)
	cart.AddItem(tea)

	lines := cart.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Tea", lines[0].Item.Name, "insertion order is kept")
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 3, cart.ItemCount())
	assert.True(t, cart.Total().Equal(decimal.NewFromInt(130)))

	cart.UpdateQuantity(cake.ID, 2)
	assert.Equal(t, 3, cart.Lines()[1].Quantity)

	cart.UpdateQuantity(tea.ID, -5)
	require.Len(t, cart.Lines(), 1)
	assert.Equal(t, "Cake", cart.Lines()[0].Item.Name)

	cart.UpdateQuantity(menuItem("Ghost", 1).ID, 1)
	assert.Len(t, cart.Lines(), 1)

	clone := cart.Clone()
	cart.Clear()
	assert.True(t, cart.Empty())
	assert.False(t, clone.Empty())
}

func TestCart_Remove(t *testing.T) {
	tea := menuItem("Tea", 30)
	cake := menuItem("Cake", 70)

	var cart Cart
	cart.AddItem(tea)
	cart.AddItem(tea)
	submitted := cart.Lines()

	cart.AddItem(tea)
	cart.AddItem(cake)
	cart.Remove(submitted)

	lines := cart.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Tea", lines[0].Item.Name)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "Cake", lines[1].Item.Name)

	cart.Remove(cart.Lines())
	assert.True(t, cart.Empty())
}

func TestCart_LinesIsACopy(t *testing.T) {
	var cart Cart
	cart.AddItem(menuItem("Tea", 30))

	lines := cart.Lines()
	lines[0].Quantity = 99
	assert.Equal(t, 1, cart.Lines()[0].Quantity)
}

func TestCustomer_Validate(t *testing.T) {
	assert.NoError(t, Customer{Name: "Ada", Phone: "0123456789"}.Validate())
	assert.Error(t, Customer{Name: "Ada", Phone: "+123456789"}.Validate())
	assert.Error(t, Customer{Name: "", Phone: "0123456789"}.Validate())
}
