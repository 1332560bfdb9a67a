/*
Copyright 2019 The MayaData Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package merge

import (
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func mustUnstructured(t *testing.T, obj map[string]interface{}) *unstructured.Unstructured {
	t.Helper()
	return &unstructured.Unstructured{Object: obj}
}

func TestObjectHash_IgnoresServerAssignedFields(t *testing.T) {
	base := map[string]interface{}{
		"kind": "Secret",
		"metadata": map[string]interface{}{
			"name": "v1",
		},
		"data": map[string]interface{}{"key": "c2VjcmV0"},
	}
	withServerFields := map[string]interface{}{
		"kind": "Secret",
		"metadata": map[string]interface{}{
			"name":              "v1",
			"resourceVersion":   "12345",
			"uid":               "abc-def",
			"creationTimestamp": "2020-01-01T00:00:00Z",
			"generation":        int64(3),
		},
		"data": map[string]interface{}{"key": "c2VjcmV0"},
	}

	h1, err := ObjectHash(mustUnstructured(t, base))
	if err != nil {
		t.Fatalf("ObjectHash(base): %v", err)
	}
	h2, err := ObjectHash(mustUnstructured(t, withServerFields))
	if err != nil {
		t.Fatalf("ObjectHash(withServerFields): %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected equal hashes, got %q and %q", h1, h2)
	}
}

func TestObjectHash_IgnoresReservedLabels(t *testing.T) {
	withoutLabels := map[string]interface{}{
		"kind":     "Secret",
		"metadata": map[string]interface{}{"name": "v1"},
	}
	withLabels := map[string]interface{}{
		"kind": "Secret",
		"metadata": map[string]interface{}{
			"name": "v1",
			"labels": map[string]interface{}{
				"legion.legion-platform.org/owner-id":       "uid-1",
				"legion.legion-platform.org/child-revision": "stale-hash",
			},
		},
	}

	h1, err := ObjectHash(mustUnstructured(t, withoutLabels))
	if err != nil {
		t.Fatalf("ObjectHash(withoutLabels): %v", err)
	}
	h2, err := ObjectHash(mustUnstructured(t, withLabels))
	if err != nil {
		t.Fatalf("ObjectHash(withLabels): %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected equal hashes, got %q and %q", h1, h2)
	}
}

func TestObjectHash_DetectsSemanticChange(t *testing.T) {
	a := mustUnstructured(t, map[string]interface{}{
		"kind":     "Secret",
		"metadata": map[string]interface{}{"name": "v1"},
		"data":     map[string]interface{}{"key": "aaaa"},
	})
	b := mustUnstructured(t, map[string]interface{}{
		"kind":     "Secret",
		"metadata": map[string]interface{}{"name": "v1"},
		"data":     map[string]interface{}{"key": "bbbb"},
	})

	ha, err := ObjectHash(a)
	if err != nil {
		t.Fatalf("ObjectHash(a): %v", err)
	}
	hb, err := ObjectHash(b)
	if err != nil {
		t.Fatalf("ObjectHash(b): %v", err)
	}
	if ha == hb {
		t.Fatalf("expected different hashes for different data, both were %q", ha)
	}
}
