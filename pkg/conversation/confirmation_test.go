package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kadirpekel/hector-core/pkg/event"
)

func TestNeverConfirmNeverRequiresConfirmation(t *testing.T) {
	assert.False(t, NeverConfirm{}.RequiresConfirmation([]event.ActionPayload{{ToolName: "shell"}}))
}

func TestAlwaysConfirmRequiresConfirmationWhenActionsExist(t *testing.T) {
	assert.True(t, AlwaysConfirm{}.RequiresConfirmation([]event.ActionPayload{{ToolName: "shell"}}))
	assert.False(t, AlwaysConfirm{}.RequiresConfirmation(nil))
}

func TestConfirmRiskyOnlyFlagsMatchingActions(t *testing.T) {
	policy := ConfirmRisky(func(a event.ActionPayload) bool { return a.ToolName == "shell" })

	assert.True(t, policy.RequiresConfirmation([]event.ActionPayload{{ToolName: "shell"}, {ToolName: "read_file"}}))
	assert.False(t, policy.RequiresConfirmation([]event.ActionPayload{{ToolName: "read_file"}}))
	assert.False(t, policy.RequiresConfirmation(nil))
}
