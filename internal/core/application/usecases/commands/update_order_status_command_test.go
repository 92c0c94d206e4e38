package commands_test

import (
	"testing"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUpdateOrderStatusCommand_ValidInput(t *testing.T) {
	id := kernel.NewUUID()
	cmd, err := commands.NewUpdateOrderStatusCommand(id, order.Paid)
	require.NoError(t, err)
	assert.Equal(t, id, cmd.OrderID())
	assert.Equal(t, order.Paid, cmd.NewStatus())
}

func TestNewUpdateOrderStatusCommand_InvalidOrderID(t *testing.T) {
	invalidID := kernel.UUID{}
	_, err := commands.NewUpdateOrderStatusCommand(invalidID, order.Paid)
	require.Error(t, err)
	assert.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
}

func TestNewUpdateOrderStatusCommand_UnknownStatus(t *testing.T) {
	id := kernel.NewUUID()
	_, err := commands.NewUpdateOrderStatusCommand(id, order.Unknown)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestUpdateOrderStatusCommand_Validate_NotConstructed(t *testing.T) {
	cmd := commands.UpdateOrderStatusCommand{}
	require.Error(t, cmd.Validate())
	assert.ErrorIs(t, cmd.Validate(), commands.ErrUpdateOrderStatusCommandIsNotConstructed)
}
