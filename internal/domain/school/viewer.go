package school

import (
	"slices"
	"strings"
)

// Role is the kind of dashboard a viewer gets.
type Role string

const (
	RoleParent      Role = "parent"
	RoleTeacher     Role = "teacher"
	RoleSchoolOwner Role = "schoolOwner"
)

// IsValid checks that the role is one of the three recognized values.
func (r Role) IsValid() bool {
	return r == RoleParent || r == RoleTeacher || r == RoleSchoolOwner
}

// Viewer is the identity supplied by the authentication collaborator.
// ChildID is meaningful for parents, ClassIDs for teachers.
type Viewer struct {
	ID       string   `json:"id"`
	Role     Role     `json:"role"`
	ChildID  string   `json:"childId,omitempty"`
	ClassIDs []string `json:"classIds,omitempty"`
}

// OwnsClass reports whether classID is one of the viewer's classes.
func (v Viewer) OwnsClass(classID string) bool {
	return classID != "" && slices.Contains(v.ClassIDs, classID)
}

// OwnedClassIDs returns the viewer's non-empty class ids without
// duplicates, in first-seen order.
func (v Viewer) OwnedClassIDs() []string {
	ids := make([]string, 0, len(v.ClassIDs))
	seen := make(map[string]struct{}, len(v.ClassIDs))
	for _, id := range v.ClassIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// ScopeKey names the rows the viewer can see: the child for a parent, the
// sorted classes for a teacher and "-" for everyone else or a viewer
// without associations. Two viewers with the same ScopeKey and role see
// the same data.
func (v Viewer) ScopeKey() string {
	switch v.Role {
	case RoleParent:
		if v.ChildID != "" {
			return v.ChildID
		}
	case RoleTeacher:
		ids := v.OwnedClassIDs()
		if len(ids) > 0 {
			slices.Sort(ids)
			return strings.Join(ids, ",")
		}
	}
	return "-"
}
