package models

// Role is the effective role of a user on a project. It is a closed
// enum so the capability table below stays exhaustive.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleCollaborator Role = "collaborator"
	RoleViewer       Role = "viewer"
	RoleNone         Role = "none"
)

// Capability is a single permitted action on a project.
type Capability string

const (
	CapabilityView                Capability = "view"
	CapabilityManageTasks         Capability = "manage_tasks"
	CapabilityComment             Capability = "comment"
	CapabilityUploadFile          Capability = "upload_file"
	CapabilityManageCollaborators Capability = "manage_collaborators"
	CapabilityManageProject       Capability = "manage_project"
)

// capabilityTable is the fixed role-to-capability mapping consulted by
// every gated operation. Grants are monotonic:
// owner ⊇ collaborator ⊇ viewer ⊇ none.
var capabilityTable = map[Role]map[Capability]bool{
	RoleOwner: {
		CapabilityView:                true,
		CapabilityManageTasks:         true,
		CapabilityComment:             true,
		CapabilityUploadFile:          true,
		CapabilityManageCollaborators: true,
		CapabilityManageProject:       true,
	},
	RoleCollaborator: {
		CapabilityView:        true,
		CapabilityManageTasks: true,
		CapabilityComment:     true,
		CapabilityUploadFile:  true,
	},
	RoleViewer: {
		CapabilityView: true,
	},
	RoleNone: {},
}

// Can reports whether the role grants the capability.
func (r Role) Can(c Capability) bool {
	return capabilityTable[r][c]
}
