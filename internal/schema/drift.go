package schema

import (
	"fmt"
	"sort"
)

// CheckDrift compares a decoded record against a reference shape and reports
// keys present in one but not the other. It recurses through nested maps and
// the first element of lists, so prompt or model drift shows up in logs before
// it breaks a downstream consumer.
func CheckDrift(record, reference map[string]any) []string {
	return driftAt(record, reference, "")
}

func driftAt(record, reference map[string]any, path string) []string {
	var drift []string

	for _, key := range sortedKeys(reference) {
		refVal := reference[key]
		got, ok := record[key]
		if !ok {
			drift = append(drift, fmt.Sprintf("missing key: %s", join(path, key)))
			continue
		}
		drift = append(drift, driftValue(got, refVal, join(path, key))...)
	}

	for _, key := range sortedKeys(record) {
		if _, ok := reference[key]; !ok {
			drift = append(drift, fmt.Sprintf("unexpected key: %s", join(path, key)))
		}
	}
	return drift
}

func driftValue(got, ref any, path string) []string {
	switch refTyped := ref.(type) {
	case map[string]any:
		gotMap, ok := got.(map[string]any)
		if !ok {
			return []string{fmt.Sprintf("type change at %s: expected object", path)}
		}
		return driftAt(gotMap, refTyped, path)
	case []any:
		gotList, ok := got.([]any)
		if !ok {
			return []string{fmt.Sprintf("type change at %s: expected list", path)}
		}
		if len(refTyped) == 0 || len(gotList) == 0 {
			return nil
		}
		refItem, refIsMap := refTyped[0].(map[string]any)
		gotItem, gotIsMap := gotList[0].(map[string]any)
		if refIsMap && gotIsMap {
			return driftAt(gotItem, refItem, path+"[0]")
		}
		return nil
	default:
		return nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
