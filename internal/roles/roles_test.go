package roles

import "testing"

func TestPredicates(t *testing.T) {
	cases := []struct {
		name  string
		role  Role
		check func(Role) bool
		allow bool
	}{
		{name: "owner is member", role: RoleOwner, check: IsMember, allow: true},
		{name: "writer is member", role: RoleWriter, check: IsMember, allow: true},
		{name: "absent is member", role: RoleNone, check: IsMember, allow: false},
		{name: "editor is editor", role: RoleEditor, check: IsEditor, allow: true},
		{name: "owner is editor", role: RoleOwner, check: IsEditor, allow: false},
		{name: "owner is admin", role: RoleOwner, check: IsAdmin, allow: true},
		{name: "admin is admin", role: RoleAdmin, check: IsAdmin, allow: true},
		{name: "editor is admin", role: RoleEditor, check: IsAdmin, allow: false},
		{name: "owner is owner", role: RoleOwner, check: IsOwner, allow: true},
		{name: "admin is owner", role: RoleAdmin, check: IsOwner, allow: false},
		{name: "writer can write stories", role: RoleWriter, check: CanWriteStories, allow: true},
		{name: "absent can write stories", role: RoleNone, check: CanWriteStories, allow: false},
		{name: "writer can edit stories", role: RoleWriter, check: CanEditStories, allow: false},
		{name: "editor can edit stories", role: RoleEditor, check: CanEditStories, allow: true},
		{name: "editor can see invitations", role: RoleEditor, check: CanSeeInvitations, allow: false},
		{name: "admin can see invitations", role: RoleAdmin, check: CanSeeInvitations, allow: true},
		{name: "writer can update publication", role: RoleWriter, check: CanUpdatePublication, allow: false},
		{name: "owner can update publication", role: RoleOwner, check: CanUpdatePublication, allow: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.check(tc.role); got != tc.allow {
				t.Fatalf("predicate(%q) = %v, want %v", tc.role, got, tc.allow)
			}
		})
	}
}

func TestAbsentRoleFailsEveryPredicate(t *testing.T) {
	checks := []func(Role) bool{
		IsMember, IsEditor, IsAdmin, IsOwner,
		CanWriteStories, CanEditStories, CanSeeInvitations, CanUpdatePublication,
	}
	for i, check := range checks {
		if check(RoleNone) {
			t.Fatalf("predicate %d admits the absent role", i)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("admin"); got != RoleAdmin {
		t.Fatalf("Normalize(admin) = %q", got)
	}
	if got := Normalize("superuser"); got != RoleNone {
		t.Fatalf("Normalize(superuser) = %q, want the absent role", got)
	}
}
