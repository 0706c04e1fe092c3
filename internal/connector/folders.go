package connector

// defaultFolder is the single-folder sentinel used when no folder list is
// configured.
const defaultFolder = "INBOX"

// ResolveFolders intersects the configured folder list with the folders the
// server advertises and subtracts the exclusion list. Exclusion wins even
// over an explicit inclusion. An empty result is valid and means there is
// nothing to sync.
//
// When the configured list is exactly the INBOX sentinel and INBOX is not
// advertised, the first available non-excluded server folder is used instead.
func ResolveFolders(serverFolders []string, configured []string, excluded []string) []string {
	excludedSet := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		excludedSet[name] = struct{}{}
	}

	available := make([]string, 0, len(serverFolders))
	availableSet := make(map[string]struct{}, len(serverFolders))
	for _, name := range serverFolders {
		if _, skip := excludedSet[name]; skip {
			continue
		}
		available = append(available, name)
		availableSet[name] = struct{}{}
	}

	if len(configured) == 1 && configured[0] == defaultFolder {
		if _, ok := availableSet[defaultFolder]; ok {
			return []string{defaultFolder}
		}
		if len(available) > 0 {
			return available[:1]
		}
		return nil
	}

	var resolved []string
	for _, name := range configured {
		if _, ok := availableSet[name]; ok {
			resolved = append(resolved, name)
		}
	}
	return resolved
}
