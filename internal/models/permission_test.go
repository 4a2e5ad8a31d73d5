package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allCapabilities = []Capability{
	CapabilityView,
	CapabilityManageTasks,
	CapabilityComment,
	CapabilityUploadFile,
	CapabilityManageCollaborators,
	CapabilityManageProject,
}

func TestRoleCapabilities(t *testing.T) {
	for _, c := range allCapabilities {
		assert.True(t, RoleOwner.Can(c), "owner should hold %s", c)
		assert.False(t, RoleNone.Can(c), "none should hold nothing, got %s", c)
	}

	assert.True(t, RoleCollaborator.Can(CapabilityView))
	assert.True(t, RoleCollaborator.Can(CapabilityManageTasks))
	assert.True(t, RoleCollaborator.Can(CapabilityComment))
	assert.True(t, RoleCollaborator.Can(CapabilityUploadFile))
	assert.False(t, RoleCollaborator.Can(CapabilityManageCollaborators))
	assert.False(t, RoleCollaborator.Can(CapabilityManageProject))

	assert.True(t, RoleViewer.Can(CapabilityView))
	assert.False(t, RoleViewer.Can(CapabilityManageTasks))
	assert.False(t, RoleViewer.Can(CapabilityComment))
	assert.False(t, RoleViewer.Can(CapabilityUploadFile))
}

// Every capability a role holds must also be held by every stronger
// role, so granting a higher role never removes an ability.
func TestRoleCapabilitiesMonotonic(t *testing.T) {
	order := []Role{RoleNone, RoleViewer, RoleCollaborator, RoleOwner}
	for i := 1; i < len(order); i++ {
		weaker, stronger := order[i-1], order[i]
		for _, c := range allCapabilities {
			if weaker.Can(c) {
				assert.True(t, stronger.Can(c), "%s holds %s but %s does not", weaker, c, stronger)
			}
		}
	}
}

func TestCollaboratorRoleMapping(t *testing.T) {
	assert.Equal(t, RoleCollaborator, CollaboratorRoleCollaborator.Role())
	assert.Equal(t, RoleViewer, CollaboratorRoleViewer.Role())
	assert.Equal(t, RoleNone, CollaboratorRole("owner").Role())

	assert.True(t, CollaboratorRoleCollaborator.Valid())
	assert.True(t, CollaboratorRoleViewer.Valid())
	assert.False(t, CollaboratorRole("owner").Valid())
}
