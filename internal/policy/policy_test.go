package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/models"
)

func uint64Ptr(v uint64) *uint64 {
	return &v
}

// fullyRelated is a resource on which the principal with id 1 holds every
// relation: member, creator, assignee, and the requested assignee is a member.
func fullyRelated() Resource {
	return Resource{
		ProjectCreatedBy:  1,
		IsMember:          true,
		TaskAssigneeID:    uint64Ptr(1),
		AssigneeRequested: true,
		AssigneeIsMember:  true,
	}
}

func TestRulesCoverEveryAction(t *testing.T) {
	require.Len(t, Rules, len(Actions))
	for _, action := range Actions {
		_, ok := Rules[action]
		assert.True(t, ok, "missing rule for %s", action)
	}
}

// With every relation satisfied only the role column of the table decides.
func TestEvaluate_RoleMatrix(t *testing.T) {
	allowed := map[Action]map[models.Role]bool{
		ActionCreateProject:    {models.RoleManager: true, models.RoleTeamLead: true},
		ActionAddMember:        {models.RoleManager: true, models.RoleTeamLead: true},
		ActionDeleteProject:    {models.RoleManager: true, models.RoleTeamLead: true, models.RoleDeveloper: true},
		ActionCreateTask:       {models.RoleManager: true},
		ActionUpdateTaskStatus: {models.RoleManager: true, models.RoleTeamLead: true, models.RoleDeveloper: true},
		ActionDeleteTask:       {models.RoleManager: true},
	}

	for _, action := range Actions {
		for _, role := range models.Roles {
			t.Run(string(action)+"/"+string(role), func(t *testing.T) {
				p := Principal{ID: 1, Role: role}
				d := Evaluate(p, action, fullyRelated())
				assert.Equal(t, allowed[action][role], d.Allowed)
				if !d.Allowed {
					assert.Equal(t, RequireRole, d.Unmet)
				}
			})
		}
	}
}

// Each relational requirement is dropped in turn for a role that passes the
// role check.
func TestEvaluate_RelationalRequirements(t *testing.T) {
	manager := Principal{ID: 1, Role: models.RoleManager}
	developer := Principal{ID: 1, Role: models.RoleDeveloper}

	tests := []struct {
		name      string
		principal Principal
		action    Action
		mutate    func(*Resource)
		allowed   bool
		unmet     Requirement
	}{
		{"create project needs no membership", manager, ActionCreateProject, func(r *Resource) { *r = Resource{} }, true, ""},
		{"add member requires membership", manager, ActionAddMember, func(r *Resource) { r.IsMember = false }, false, RequireMembership},
		{"add member ignores creator", manager, ActionAddMember, func(r *Resource) { r.ProjectCreatedBy = 99 }, true, ""},
		{"delete project requires creator", manager, ActionDeleteProject, func(r *Resource) { r.ProjectCreatedBy = 99 }, false, RequireCreator},
		{"delete project ignores membership", developer, ActionDeleteProject, func(r *Resource) { r.IsMember = false }, true, ""},
		{"create task requires membership", manager, ActionCreateTask, func(r *Resource) { r.IsMember = false }, false, RequireMembership},
		{"create task rejects non-member assignee", manager, ActionCreateTask, func(r *Resource) { r.AssigneeIsMember = false }, false, RequireAssigneeMember},
		{"create task without assignee", manager, ActionCreateTask, func(r *Resource) {
			r.AssigneeRequested = false
			r.AssigneeIsMember = false
		}, true, ""},
		{"update status requires assignee", developer, ActionUpdateTaskStatus, func(r *Resource) { r.TaskAssigneeID = uint64Ptr(2) }, false, RequireAssignee},
		{"update status on unassigned task", developer, ActionUpdateTaskStatus, func(r *Resource) { r.TaskAssigneeID = nil }, false, RequireAssignee},
		{"update status ignores membership", developer, ActionUpdateTaskStatus, func(r *Resource) { r.IsMember = false }, true, ""},
		{"delete task requires membership", manager, ActionDeleteTask, func(r *Resource) { r.IsMember = false }, false, RequireMembership},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := fullyRelated()
			tt.mutate(&res)
			d := Evaluate(tt.principal, tt.action, res)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.unmet, d.Unmet)
			assert.Equal(t, tt.allowed, Can(tt.principal, tt.action, res))
		})
	}
}

func TestEvaluate_DeniesUnknownRoleAndAction(t *testing.T) {
	d := Evaluate(Principal{ID: 1, Role: "admin"}, ActionDeleteProject, fullyRelated())
	assert.False(t, d.Allowed)
	assert.Equal(t, RequireRole, d.Unmet)

	d = Evaluate(Principal{ID: 1, Role: models.RoleManager}, Action("archive_project"), fullyRelated())
	assert.False(t, d.Allowed)
	assert.Equal(t, RequireKnownAction, d.Unmet)
}
