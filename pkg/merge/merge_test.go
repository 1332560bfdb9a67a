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

	"github.com/google/go-cmp/cmp"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func childWithLabels(kind, name string, labels map[string]string) Child {
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"kind":     kind,
		"metadata": map[string]interface{}{"name": name},
	}}
	if labels != nil {
		obj.SetLabels(labels)
	}
	return Child{Key: ChildKey{Kind: kind, SubName: name}, Object: obj}
}

func TestCompute_CreatesMissingChildren(t *testing.T) {
	desired := []Child{childWithLabels("Secret", "v1", nil)}

	plan, err := Compute(nil, nil, nil, desired)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(plan.Create) != 1 || len(plan.Update) != 0 || len(plan.Delete) != 0 {
		t.Fatalf("expected exactly one create, got %+v", plan)
	}
}

func TestCompute_DeletesUnwantedChildren(t *testing.T) {
	observed := []Child{childWithLabels("Secret", "v1", nil)}

	plan, err := Compute(nil, nil, observed, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(plan.Delete) != 1 || len(plan.Create) != 0 || len(plan.Update) != 0 {
		t.Fatalf("expected exactly one delete, got %+v", plan)
	}
}

func TestCompute_IdempotentWhenRevisionMatches(t *testing.T) {
	desiredObj := childWithLabels("Secret", "v1", nil)
	hash, err := ObjectHash(desiredObj.Object)
	if err != nil {
		t.Fatalf("ObjectHash: %v", err)
	}

	observed := childWithLabels("Secret", "v1", map[string]string{
		"legion.legion-platform.org/child-revision": hash,
	})

	plan, err := Compute(nil, nil, []Child{observed}, []Child{desiredObj})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !plan.IsEmpty() {
		t.Fatalf("expected empty plan when revision matches, got %+v", plan)
	}
}

func TestCompute_UpdatesOnRevisionDrift(t *testing.T) {
	desiredObj := childWithLabels("Secret", "v1", nil)
	observed := childWithLabels("Secret", "v1", map[string]string{
		"legion.legion-platform.org/child-revision": "stale",
	})

	plan, err := Compute(nil, nil, []Child{observed}, []Child{desiredObj})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(plan.Update) != 1 {
		t.Fatalf("expected exactly one update, got %+v", plan)
	}
}

func TestCompute_StatusPatchOnlyIncludesChangedFields(t *testing.T) {
	current := map[string]interface{}{"state": "Running", "result": "ok"}
	desired := map[string]interface{}{"state": "Succeeded", "result": "ok"}

	plan, err := Compute(current, desired, nil, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(plan.StatusPatch) != 1 || plan.StatusPatch["state"] != "Succeeded" {
		t.Fatalf("expected status patch with only state changed, got %+v", plan.StatusPatch)
	}
}

func TestCompute_DuplicateMergeKeyIsAnError(t *testing.T) {
	desired := []Child{
		childWithLabels("Secret", "v1", nil),
		childWithLabels("Secret", "v1", nil),
	}

	if _, err := Compute(nil, nil, nil, desired); err == nil {
		t.Fatal("expected error on duplicate (kind, sub-name) key")
	}
}

func TestCompute_DeterministicOrdering(t *testing.T) {
	desired := []Child{
		childWithLabels("Pod", "b", nil),
		childWithLabels("Secret", "a", nil),
		childWithLabels("Pod", "a", nil),
	}

	plan, err := Compute(nil, nil, nil, desired)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := []ChildKey{
		{Kind: "Pod", SubName: "a"},
		{Kind: "Pod", SubName: "b"},
		{Kind: "Secret", SubName: "a"},
	}
	got := make([]ChildKey, len(plan.Create))
	for i, c := range plan.Create {
		got[i] = c.Key
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("create order mismatch (-want +got):\n%s", diff)
	}
}
