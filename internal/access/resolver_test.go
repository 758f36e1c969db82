package access

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"prospera-platform/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRoles struct {
	roles map[string]Role
	err   error
	calls int
}

func (s *stubRoles) RoleByIdentity(ctx context.Context, userID string) (Role, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	r, ok := s.roles[userID]
	if !ok {
		return "", ErrNotFound
	}
	return r, nil
}

type stubFlags struct {
	admins map[[2]string]bool
	err    error
	calls  int
}

func (s *stubFlags) IsCompanyAdmin(ctx context.Context, userID, companyID string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.admins[[2]string{userID, companyID}], nil
}

type stubOwners struct {
	owners map[string]string
	err    error
	calls  int
}

func (s *stubOwners) ResourceOwner(ctx context.Context, resourceID string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	o, ok := s.owners[resourceID]
	if !ok {
		return "", ErrNotFound
	}
	return o, nil
}

func newTestResolver(roles map[string]Role) (*Resolver, *stubRoles, *stubFlags, *stubOwners) {
	rs := &stubRoles{roles: roles}
	fs := &stubFlags{admins: map[[2]string]bool{}}
	os := &stubOwners{owners: map[string]string{}}
	return NewResolver(rs, fs, os), rs, fs, os
}

var allCapabilities = []Capability{
	CapabilityView,
	CapabilityManageEmployees,
	CapabilityManageCompany,
	CapabilitySuperadminTools,
}

func TestResolve_SuperAdminBypassesEverything(t *testing.T) {
	r, _, fs, os := newTestResolver(map[string]Role{"root": RoleSuperAdmin})

	for _, c := range allCapabilities {
		for _, rc := range []*ResourceContext{nil, {CompanyID: "c1"}, {ResourceOwnerUserID: "someone"}} {
			d := r.Resolve(context.Background(), "root", c, rc)
			assert.True(t, d.Granted, "capability %s", c)
			assert.Equal(t, ReasonGranted, d.Reason)
			assert.Equal(t, BasisSuperAdmin, d.Basis)
		}
	}
	assert.Zero(t, fs.calls)
	assert.Zero(t, os.calls)
}

func TestResolve_BankManagerManagesEmployeesRegardlessOfFlag(t *testing.T) {
	r, _, fs, _ := newTestResolver(map[string]Role{"bm": RoleBankManager})

	for _, company := range []string{"c1", "c2", ""} {
		d := r.Resolve(context.Background(), "bm", CapabilityManageEmployees, &ResourceContext{CompanyID: company})
		assert.True(t, d.Granted)
		assert.Equal(t, BasisRole, d.Basis)
	}
	assert.Zero(t, fs.calls, "flag must not be consulted for bank managers")
}

func TestResolve_ScenarioA_EmployeeWithoutFlagDenied(t *testing.T) {
	r, _, fs, _ := newTestResolver(map[string]Role{"u1": RoleCompanyEmployee})

	d := r.Resolve(context.Background(), "u1", CapabilityManageEmployees, &ResourceContext{CompanyID: "c1"})
	assert.False(t, d.Granted)
	assert.Equal(t, ReasonDenied, d.Reason)
	assert.Equal(t, 1, fs.calls)
}

func TestResolve_ScenarioB_CompanyManagerGranted(t *testing.T) {
	r, _, fs, _ := newTestResolver(map[string]Role{"u2": RoleCompanyManager})

	d := r.Resolve(context.Background(), "u2", CapabilityManageEmployees, &ResourceContext{CompanyID: "c1"})
	assert.True(t, d.Granted)
	assert.Equal(t, BasisRole, d.Basis)
	assert.Zero(t, fs.calls)
}

func TestResolve_ScenarioC_SelfAccessGranted(t *testing.T) {
	r, _, _, _ := newTestResolver(map[string]Role{"u3": RoleCompanyEmployee})

	d := r.Resolve(context.Background(), "u3", CapabilityManageEmployees, &ResourceContext{ResourceOwnerUserID: "u3"})
	assert.True(t, d.Granted)
	assert.True(t, d.SelfOnly())
}

func TestResolve_ScenarioD_Unauthenticated(t *testing.T) {
	r, rs, _, _ := newTestResolver(nil)

	d := r.Resolve(context.Background(), "", CapabilityView, nil)
	assert.False(t, d.Granted)
	assert.Equal(t, ReasonUnauthenticated, d.Reason)
	assert.Zero(t, rs.calls)
}

func TestResolve_ScenarioE_SuperadminToolsOnlyForSuperAdmin(t *testing.T) {
	r, _, _, _ := newTestResolver(map[string]Role{"u4": RoleSuperAdmin, "u5": RoleBankManager})

	assert.True(t, r.Resolve(context.Background(), "u4", CapabilitySuperadminTools, nil).Granted)

	d := r.Resolve(context.Background(), "u5", CapabilitySuperadminTools, nil)
	assert.False(t, d.Granted)
	assert.Equal(t, ReasonDenied, d.Reason)
}

func TestResolve_SelfAccessIsStrictEquality(t *testing.T) {
	r, _, _, os := newTestResolver(map[string]Role{"u": RoleCompanyEmployee, "v": RoleCompanyEmployee})
	os.owners["emp-1"] = "u"

	assert.True(t, r.Resolve(context.Background(), "u", CapabilityManageEmployees, &ResourceContext{ResourceID: "emp-1"}).SelfOnly())

	d := r.Resolve(context.Background(), "v", CapabilityManageEmployees, &ResourceContext{ResourceID: "emp-1"})
	assert.False(t, d.Granted)

	d = r.Resolve(context.Background(), "v", CapabilityManageEmployees, &ResourceContext{ResourceOwnerUserID: "u"})
	assert.False(t, d.Granted)
}

func TestResolve_SuppliedOwnerCannotOverrideStoredOwner(t *testing.T) {
	r, _, _, os := newTestResolver(map[string]Role{"u": RoleCompanyEmployee, "v": RoleCompanyEmployee})
	os.owners["emp-1"] = "u"

	d := r.Resolve(context.Background(), "v", CapabilityManageEmployees, &ResourceContext{ResourceID: "emp-1", ResourceOwnerUserID: "v"})
	assert.False(t, d.Granted)
	assert.Equal(t, ReasonDenied, d.Reason)
	assert.Equal(t, 1, os.calls)

	// an unlinked record cannot be claimed either
	d = r.Resolve(context.Background(), "v", CapabilityManageEmployees, &ResourceContext{ResourceID: "missing", ResourceOwnerUserID: "v"})
	assert.False(t, d.Granted)

	d = r.Resolve(context.Background(), "u", CapabilityManageEmployees, &ResourceContext{ResourceID: "emp-1", ResourceOwnerUserID: "v"})
	assert.True(t, d.SelfOnly())
}

func TestResolve_SuppliedOwnerWithoutResourceSkipsLookup(t *testing.T) {
	r, _, _, os := newTestResolver(map[string]Role{"u": RoleCompanyEmployee})

	d := r.Resolve(context.Background(), "u", CapabilityManageEmployees, &ResourceContext{ResourceOwnerUserID: "u"})
	assert.True(t, d.SelfOnly())
	assert.Zero(t, os.calls)
}

func TestResolve_UnlinkedResourceDenied(t *testing.T) {
	r, _, _, os := newTestResolver(map[string]Role{"u": RoleCompanyEmployee})

	d := r.Resolve(context.Background(), "u", CapabilityManageEmployees, &ResourceContext{ResourceID: "missing"})
	assert.False(t, d.Granted)
	assert.Equal(t, ReasonDenied, d.Reason)
	assert.Equal(t, 1, os.calls)
}

func TestResolve_CompanyAdminFlagIsScoped(t *testing.T) {
	r, _, fs, _ := newTestResolver(map[string]Role{"u": RoleCompanyEmployee})
	fs.admins[[2]string{"u", "A"}] = true

	d := r.Resolve(context.Background(), "u", CapabilityManageEmployees, &ResourceContext{CompanyID: "A"})
	assert.True(t, d.Granted)
	assert.Equal(t, BasisCompanyAdmin, d.Basis)
	assert.False(t, d.SelfOnly())

	assert.False(t, r.Resolve(context.Background(), "u", CapabilityManageEmployees, &ResourceContext{CompanyID: "B"}).Granted)
}

func TestResolve_CompanyAdminFlagDoesNotGrantCompanyManagement(t *testing.T) {
	r, _, fs, _ := newTestResolver(map[string]Role{"u": RoleCompanyEmployee})
	fs.admins[[2]string{"u", "A"}] = true

	for _, c := range []Capability{CapabilityView, CapabilityManageCompany, CapabilitySuperadminTools} {
		assert.False(t, r.Resolve(context.Background(), "u", c, &ResourceContext{CompanyID: "A"}).Granted, "capability %s", c)
	}
	assert.Zero(t, fs.calls)
}

func TestResolve_MissingContextDeniesManageEmployees(t *testing.T) {
	r, _, fs, os := newTestResolver(map[string]Role{"u": RoleCompanyEmployee})

	for _, rc := range []*ResourceContext{nil, {}} {
		d := r.Resolve(context.Background(), "u", CapabilityManageEmployees, rc)
		assert.False(t, d.Granted)
		assert.Equal(t, ReasonDenied, d.Reason)
	}
	assert.Zero(t, fs.calls)
	assert.Zero(t, os.calls)
}

func TestResolve_ViewAndManageCompanyRequireBankManager(t *testing.T) {
	r, _, _, _ := newTestResolver(map[string]Role{
		"bm": RoleBankManager,
		"cm": RoleCompanyManager,
		"ce": RoleCompanyEmployee,
	})

	for _, c := range []Capability{CapabilityView, CapabilityManageCompany} {
		assert.True(t, r.Resolve(context.Background(), "bm", c, nil).Granted)
		assert.False(t, r.Resolve(context.Background(), "cm", c, nil).Granted)
		assert.False(t, r.Resolve(context.Background(), "ce", c, nil).Granted)
	}
}

func TestResolve_RoleLookupErrorFailsClosed(t *testing.T) {
	r, rs, fs, os := newTestResolver(map[string]Role{"root": RoleSuperAdmin})
	rs.err = errors.New("connection refused")
	fs.admins[[2]string{"root", "c1"}] = true

	for _, c := range allCapabilities {
		d := r.Resolve(context.Background(), "root", c, &ResourceContext{CompanyID: "c1", ResourceOwnerUserID: "root"})
		assert.False(t, d.Granted)
		assert.Equal(t, ReasonLookupFailed, d.Reason)
	}
	assert.Zero(t, fs.calls)
	assert.Zero(t, os.calls)
}

func TestResolve_MissingRoleRecordIsLeastPrivilege(t *testing.T) {
	r, _, fs, _ := newTestResolver(map[string]Role{})
	fs.admins[[2]string{"ghost", "c1"}] = true

	assert.False(t, r.Resolve(context.Background(), "ghost", CapabilityView, nil).Granted)
	assert.True(t, r.Resolve(context.Background(), "ghost", CapabilityManageEmployees, &ResourceContext{CompanyID: "c1"}).Granted)
}

func TestResolve_FlagLookupErrorFailsClosed(t *testing.T) {
	r, _, fs, os := newTestResolver(map[string]Role{"u": RoleCompanyEmployee})
	fs.err = errors.New("timeout")

	d := r.Resolve(context.Background(), "u", CapabilityManageEmployees, &ResourceContext{CompanyID: "c1", ResourceOwnerUserID: "u"})
	assert.False(t, d.Granted)
	assert.Equal(t, ReasonLookupFailed, d.Reason)
	assert.Zero(t, os.calls)
}

func TestResolve_OwnerLookupErrorFailsClosed(t *testing.T) {
	r, _, _, os := newTestResolver(map[string]Role{"u": RoleCompanyEmployee})
	os.err = errors.New("timeout")

	d := r.Resolve(context.Background(), "u", CapabilityManageEmployees, &ResourceContext{ResourceID: "emp-1"})
	assert.Equal(t, ReasonLookupFailed, d.Reason)
}

func TestResolve_LookupFailureLogsRequestedCapability(t *testing.T) {
	r, rs, _, _ := newTestResolver(nil)
	rs.err = errors.New("timeout")

	var buf bytes.Buffer
	ctx := logger.With(context.Background(), logger.NewWithWriter(&buf, "dev"))

	d := r.Resolve(ctx, "u", CapabilityView, nil)
	assert.Equal(t, ReasonLookupFailed, d.Reason)
	assert.Contains(t, buf.String(), `"capability":"view"`)
	assert.NotContains(t, buf.String(), "manage-employees")
}

func TestResolve_MissingStoresFailClosed(t *testing.T) {
	d := NewResolver(nil, nil, nil).Resolve(context.Background(), "u", CapabilityView, nil)
	assert.Equal(t, ReasonLookupFailed, d.Reason)

	rs := &stubRoles{roles: map[string]Role{"u": RoleCompanyEmployee}}
	d = NewResolver(rs, nil, nil).Resolve(context.Background(), "u", CapabilityManageEmployees, &ResourceContext{CompanyID: "c1"})
	assert.Equal(t, ReasonLookupFailed, d.Reason)
}

func TestResolve_UnknownCapabilityDenied(t *testing.T) {
	r, rs, _, _ := newTestResolver(map[string]Role{"root": RoleSuperAdmin})

	d := r.Resolve(context.Background(), "root", Capability("delete-bank"), nil)
	assert.False(t, d.Granted)
	assert.Equal(t, ReasonDenied, d.Reason)
	assert.Zero(t, rs.calls)
}

func TestResolve_Idempotent(t *testing.T) {
	r, _, fs, _ := newTestResolver(map[string]Role{"u": RoleCompanyEmployee})
	fs.admins[[2]string{"u", "c1"}] = true
	rc := &ResourceContext{CompanyID: "c1"}

	first := r.Resolve(context.Background(), "u", CapabilityManageEmployees, rc)
	second := r.Resolve(context.Background(), "u", CapabilityManageEmployees, rc)
	require.Equal(t, first, second)
	assert.Equal(t, &ResourceContext{CompanyID: "c1"}, rc)
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"super_admin":      RoleSuperAdmin,
		"bank_manager":     RoleBankManager,
		"admin":            RoleBankManager,
		" Company_Manager": RoleCompanyManager,
		"company_employee": RoleCompanyEmployee,
		"":                 RoleCompanyEmployee,
	}
	for raw, want := range cases {
		got, err := ParseRole(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseRole("owner")
	assert.Error(t, err)
}

func TestRoleRank(t *testing.T) {
	assert.True(t, RoleSuperAdmin.AtLeast(RoleBankManager))
	assert.True(t, RoleBankManager.AtLeast(RoleCompanyManager))
	assert.True(t, RoleCompanyManager.AtLeast(RoleCompanyEmployee))
	assert.False(t, RoleCompanyEmployee.AtLeast(RoleCompanyManager))
	assert.False(t, Role("owner").AtLeast(Role("owner")))
}

func TestParseCapability(t *testing.T) {
	for _, c := range allCapabilities {
		got, err := ParseCapability(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCapability("manage")
	assert.Error(t, err)
}
