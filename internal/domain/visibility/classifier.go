package visibility

// Classify combines a map's platform sharing result with its
// application-level access flag. It is total: every (map, sharing)
// pair yields exactly one classification.
//
// A map with no ArcGIS item ID cannot be verified against the platform
// and always classifies ConfigRestricted; it never reaches the public
// set but an application session still unlocks it. A map whose item ID
// is absent from the sharing results is treated as not publicly
// shared.
func Classify(m MapConfig, sharing map[string]SharingResult) Classification {
	if m.ArcGISItemID == "" {
		return ConfigRestricted
	}

	result, ok := sharing[m.ArcGISItemID]
	isPublic := ok && result.IsPublic

	switch {
	case isPublic && !m.IsPrivate():
		return EffectivelyPublic
	case isPublic:
		// Platform says public, administrator overrode to private. The
		// override may be stronger than the platform's own setting,
		// never weaker.
		return ConfigRestricted
	default:
		return PlatformRestricted
	}
}

// Partition classifies every map in configured order and splits the
// list into the three buckets. Order within each bucket follows the
// input list.
func Partition(maps []MapConfig, sharing map[string]SharingResult) (public, configRestricted, platformRestricted []MapConfig) {
	for _, m := range maps {
		switch Classify(m, sharing) {
		case EffectivelyPublic:
			public = append(public, m)
		case ConfigRestricted:
			configRestricted = append(configRestricted, m)
		case PlatformRestricted:
			platformRestricted = append(platformRestricted, m)
		}
	}
	return public, configRestricted, platformRestricted
}
