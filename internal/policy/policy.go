// Package policy decides which principal may perform which mutation on which
// project or task. Decisions are pure: every fact a rule depends on is
// gathered by the caller into a Resource beforehand.
package policy

import "github.com/yukikurage/project-management-api/internal/models"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID    uint64      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

// Action names a guarded mutation.
type Action string

const (
	ActionCreateProject    Action = "create_project"
	ActionAddMember        Action = "add_project_member"
	ActionDeleteProject    Action = "delete_project"
	ActionCreateTask       Action = "create_task"
	ActionUpdateTaskStatus Action = "update_task_status"
	ActionDeleteTask       Action = "delete_task"
)

// Actions lists every guarded action.
var Actions = []Action{
	ActionCreateProject,
	ActionAddMember,
	ActionDeleteProject,
	ActionCreateTask,
	ActionUpdateTaskStatus,
	ActionDeleteTask,
}

// Resource carries the facts about the target entity that rules may consult.
type Resource struct {
	// ProjectCreatedBy is the creator of the target project.
	ProjectCreatedBy uint64
	// IsMember reports whether the principal belongs to the target project.
	IsMember bool
	// TaskAssigneeID is the assignee of the target task, if any.
	TaskAssigneeID *uint64
	// AssigneeRequested is set when a task is created with an assignee;
	// AssigneeIsMember then reports whether that user belongs to the project.
	AssigneeRequested bool
	AssigneeIsMember  bool
}

// Requirement is a single condition of a rule.
type Requirement string

const (
	RequireKnownAction    Requirement = "known_action"
	RequireRole           Requirement = "role"
	RequireMembership     Requirement = "membership"
	RequireCreator        Requirement = "creator"
	RequireAssignee       Requirement = "assignee"
	RequireAssigneeMember Requirement = "assignee_membership"
)

// Rule is one row of the permission table. Roles is the set of roles allowed
// to act; an empty set admits every valid role.
type Rule struct {
	Roles          []models.Role
	Member         bool
	Creator        bool
	Assignee       bool
	AssigneeMember bool
}

// Rules is the permission table.
var Rules = map[Action]Rule{
	ActionCreateProject: {
		Roles: []models.Role{models.RoleManager, models.RoleTeamLead},
	},
	ActionAddMember: {
		Roles:  []models.Role{models.RoleManager, models.RoleTeamLead},
		Member: true,
	},
	ActionDeleteProject: {
		Creator: true,
	},
	ActionCreateTask: {
		Roles:          []models.Role{models.RoleManager},
		Member:         true,
		AssigneeMember: true,
	},
	ActionUpdateTaskStatus: {
		Assignee: true,
	},
	ActionDeleteTask: {
		Roles:  []models.Role{models.RoleManager},
		Member: true,
	},
}

// Decision is the outcome of evaluating a rule. Unmet names the first
// requirement that failed when Allowed is false.
type Decision struct {
	Allowed bool
	Unmet   Requirement
}

func deny(r Requirement) Decision {
	return Decision{Unmet: r}
}

// Evaluate checks every requirement of the rule for action in a fixed order:
// role, membership, creator, assignee, assignee membership.
func Evaluate(p Principal, action Action, res Resource) Decision {
	rule, ok := Rules[action]
	if !ok {
		return deny(RequireKnownAction)
	}

	if !p.Role.Valid() || !rule.allowsRole(p.Role) {
		return deny(RequireRole)
	}
	if rule.Member && !res.IsMember {
		return deny(RequireMembership)
	}
	if rule.Creator && res.ProjectCreatedBy != p.ID {
		return deny(RequireCreator)
	}
	if rule.Assignee && (res.TaskAssigneeID == nil || *res.TaskAssigneeID != p.ID) {
		return deny(RequireAssignee)
	}
	if rule.AssigneeMember && res.AssigneeRequested && !res.AssigneeIsMember {
		return deny(RequireAssigneeMember)
	}

	return Decision{Allowed: true}
}

// Can reports whether p may perform action on res.
func Can(p Principal, action Action, res Resource) bool {
	return Evaluate(p, action, res).Allowed
}

func (r Rule) allowsRole(role models.Role) bool {
	if len(r.Roles) == 0 {
		return true
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}
