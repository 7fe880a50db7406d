package visibility

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		m       MapConfig
		sharing map[string]SharingResult
		want    Classification
	}{
		{
			"platform public, config public",
			MapConfig{ID: "a", ArcGISItemID: "x1", Access: AccessPublic},
			map[string]SharingResult{"x1": {IsPublic: true}},
			EffectivelyPublic,
		},
		{
			"platform public, default access flag",
			MapConfig{ID: "a", ArcGISItemID: "x1"},
			map[string]SharingResult{"x1": {IsPublic: true}},
			EffectivelyPublic,
		},
		{
			"platform public, config private",
			MapConfig{ID: "a", ArcGISItemID: "x1", Access: AccessPrivate},
			map[string]SharingResult{"x1": {IsPublic: true}},
			ConfigRestricted,
		},
		{
			"platform private, config public",
			MapConfig{ID: "a", ArcGISItemID: "x1", Access: AccessPublic},
			map[string]SharingResult{"x1": {IsPublic: false}},
			PlatformRestricted,
		},
		{
			"platform private, config private",
			MapConfig{ID: "a", ArcGISItemID: "x1", Access: AccessPrivate},
			map[string]SharingResult{"x1": {IsPublic: false}},
			PlatformRestricted,
		},
		{
			"no item id, config public",
			MapConfig{ID: "a", Access: AccessPublic},
			map[string]SharingResult{},
			ConfigRestricted,
		},
		{
			"no item id, config private",
			MapConfig{ID: "a", Access: AccessPrivate},
			nil,
			ConfigRestricted,
		},
		{
			"item id missing from sharing results",
			MapConfig{ID: "a", ArcGISItemID: "x9", Access: AccessPublic},
			map[string]SharingResult{"x1": {IsPublic: true}},
			PlatformRestricted,
		},
		{
			"probe failure recorded as non-public",
			MapConfig{ID: "a", ArcGISItemID: "x1"},
			map[string]SharingResult{"x1": {IsPublic: false, Detail: "lookup failed: timeout"}},
			PlatformRestricted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.m, tt.sharing); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyNeverPublicWithoutItemID(t *testing.T) {
	// Even a sharing entry keyed by the empty string must not make an
	// unverifiable map public.
	m := MapConfig{ID: "c"}
	sharing := map[string]SharingResult{"": {IsPublic: true}}
	if got := Classify(m, sharing); got != ConfigRestricted {
		t.Errorf("Classify() = %q, want %q", got, ConfigRestricted)
	}
}

func TestPartitionPreservesOrder(t *testing.T) {
	maps := []MapConfig{
		{ID: "pub1", ArcGISItemID: "i1"},
		{ID: "plat1", ArcGISItemID: "i2"},
		{ID: "cfg1", ArcGISItemID: "i3", Access: AccessPrivate},
		{ID: "pub2", ArcGISItemID: "i4"},
		{ID: "cfg2"},
		{ID: "plat2", ArcGISItemID: "i5"},
	}
	sharing := map[string]SharingResult{
		"i1": {IsPublic: true},
		"i2": {IsPublic: false},
		"i3": {IsPublic: true},
		"i4": {IsPublic: true},
		"i5": {IsPublic: false},
	}

	public, configRestricted, platformRestricted := Partition(maps, sharing)

	assertIDs(t, "public", public, "pub1", "pub2")
	assertIDs(t, "configRestricted", configRestricted, "cfg1", "cfg2")
	assertIDs(t, "platformRestricted", platformRestricted, "plat1", "plat2")
}

func assertIDs(t *testing.T, label string, maps []MapConfig, want ...string) {
	t.Helper()
	if len(maps) != len(want) {
		t.Fatalf("%s: got %d maps, want %d", label, len(maps), len(want))
	}
	for i, m := range maps {
		if m.ID != want[i] {
			t.Errorf("%s[%d] = %q, want %q", label, i, m.ID, want[i])
		}
	}
}
