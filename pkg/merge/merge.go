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
	"sort"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ChildKey identifies a child within its owner. It is unique per owner
// and is the merge key between observed and desired state.
type ChildKey struct {
	Kind    string
	SubName string
}

// Child pairs a merge key with the object it refers to.
type Child struct {
	Key    ChildKey
	Object *unstructured.Unstructured
}

// Plan is the outcome of diffing observed against desired children: the
// status fields that changed, and the create/update/delete sets. Apply
// order is status, then delete, then create, then update (see
// Controller.reconcile in package controller).
type Plan struct {
	StatusPatch map[string]interface{}
	Create      []Child
	Update      []Child
	Delete      []Child
}

// IsEmpty reports whether applying this plan would be a no-op.
func (p Plan) IsEmpty() bool {
	return len(p.StatusPatch) == 0 && len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

func byKey(children []Child) (map[ChildKey]Child, error) {
	out := make(map[ChildKey]Child, len(children))
	for _, c := range children {
		if _, exists := out[c.Key]; exists {
			return nil, errors.Errorf(
				"duplicate child key (kind=%s, sub-name=%s): merge key must be unique per owner",
				c.Key.Kind, c.Key.SubName,
			)
		}
		out[c.Key] = c
	}
	return out, nil
}

func sortedKeys(m map[ChildKey]Child) []ChildKey {
	keys := make([]ChildKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].SubName < keys[j].SubName
	})
	return keys
}

// Compute builds the merge plan for one reconcile. currentStatus is the
// owner's current .status fields (as a generic map); desiredStatus is
// what the handler wants it to be; a nil desiredStatus means "no opinion
// on status this reconcile".
func Compute(
	currentStatus, desiredStatus map[string]interface{},
	observed, desired []Child,
) (Plan, error) {
	var plan Plan

	if len(desiredStatus) > 0 {
		patch := map[string]interface{}{}
		for field, value := range desiredStatus {
			if currentStatus[field] != value {
				patch[field] = value
			}
		}
		if len(patch) > 0 {
			plan.StatusPatch = patch
		}
	}

	observedByKey, err := byKey(observed)
	if err != nil {
		return Plan{}, errors.Wrap(err, "observed children")
	}
	desiredByKey, err := byKey(desired)
	if err != nil {
		return Plan{}, errors.Wrap(err, "desired children")
	}

	for _, key := range sortedKeys(desiredByKey) {
		want := desiredByKey[key]
		have, exists := observedByKey[key]
		if !exists {
			plan.Create = append(plan.Create, want)
			continue
		}
		wantHash, err := ObjectHash(want.Object)
		if err != nil {
			return Plan{}, errors.Wrapf(err, "hash desired child %s/%s", key.Kind, key.SubName)
		}
		if RevisionOf(have.Object) != wantHash {
			plan.Update = append(plan.Update, want)
		}
	}

	for _, key := range sortedKeys(observedByKey) {
		if _, wanted := desiredByKey[key]; !wanted {
			plan.Delete = append(plan.Delete, observedByKey[key])
		}
	}

	return plan, nil
}
