package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasAdminBypass(t *testing.T) {
	m := AliasMatcher{}
	require.True(t, m.Has(nil, true, "anythingAtAll"))
	require.True(t, m.HasAny(nil, true, []string{"whatever"}))
}

func TestHasExactMatch(t *testing.T) {
	m := AliasMatcher{}
	granted := []string{"clientRead", "siteEdit"}
	require.True(t, m.Has(granted, false, "clientRead"))
	require.True(t, m.Has(granted, false, "siteEdit"))
	require.False(t, m.Has(granted, false, "clientEdit"))
}

func TestHasEmptyInputs(t *testing.T) {
	m := AliasMatcher{}
	require.False(t, m.Has(nil, false, "clientRead"))
	require.False(t, m.Has([]string{"clientRead"}, false, ""))
	require.False(t, m.HasAny([]string{"clientRead"}, false, nil))
}

func TestHasForwardAlias(t *testing.T) {
	m := AliasMatcher{}
	// Requested key is more specific than the grant: the grant's resource
	// name appears inside the requested key and the action matches.
	require.True(t, m.Has([]string{"clientEdit"}, false, "clientAccountEdit"))
	require.True(t, m.Has([]string{"siteRead"}, false, "siteScheduleRead"))
}

func TestHasReverseAlias(t *testing.T) {
	m := AliasMatcher{}
	// Grant is more specific than the requested key: the requested resource
	// appears inside the grant.
	require.True(t, m.Has([]string{"clientAccountEdit"}, false, "clientEdit"))
	require.True(t, m.Has([]string{"dispatchTicketRead"}, false, "dispatchRead"))
}

func TestHasAliasRequiresMatchingAction(t *testing.T) {
	m := AliasMatcher{}
	require.False(t, m.Has([]string{"clientRead"}, false, "clientAccountEdit"))
	require.False(t, m.Has([]string{"clientAccountDestroy"}, false, "clientEdit"))
}

func TestHasNoAliasWithoutRecognizedSuffix(t *testing.T) {
	m := AliasMatcher{}
	// "View" is not in the action vocabulary, so only exact matches apply.
	require.False(t, m.Has([]string{"dashboard"}, false, "dashboardView"))
	require.True(t, m.Has([]string{"dashboardView"}, false, "dashboardView"))
}

func TestHasAliasCaseInsensitiveSuffix(t *testing.T) {
	m := AliasMatcher{}
	require.True(t, m.Has([]string{"clientEdit"}, false, "clientaccountedit"))
}

func TestHasAliasFalsePositiveIsAccepted(t *testing.T) {
	m := AliasMatcher{}
	// Known property of the substring heuristic: a shared action plus
	// overlapping resource names can over-grant.
	require.True(t, m.Has([]string{"clientEdit"}, false, "clientContractEdit"))
}

func TestHasAnyMixedKeys(t *testing.T) {
	m := AliasMatcher{}
	granted := []string{"billingExport"}
	require.True(t, m.HasAny(granted, false, []string{"billingRead", "billingExport"}))
	require.False(t, m.HasAny(granted, false, []string{"billingRead", "billingDestroy"}))
}

func TestSplitAction(t *testing.T) {
	resource, action, ok := splitAction("clientAccountEdit")
	require.True(t, ok)
	require.Equal(t, "clientAccount", resource)
	require.Equal(t, "Edit", action)

	_, _, ok = splitAction("dashboardView")
	require.False(t, ok)

	resource, action, ok = splitAction("Export")
	require.True(t, ok)
	require.Equal(t, "", resource)
	require.Equal(t, "Export", action)
}
