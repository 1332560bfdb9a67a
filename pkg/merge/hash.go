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

// Package merge implements content-hash based change detection and the
// three-way diff between observed and desired children of an owner
// resource.
package merge

import (
	"crypto/sha1" // nolint:gosec // content-addressing, not a security boundary
	"encoding/hex"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/json"

	legionv1 "github.com/legion-platform/legion-operator/apis/legion/v1"
)

// ObjectHash returns a stable digest of obj's canonical, key-sorted JSON
// serialization, excluding server-assigned fields (resourceVersion, uid,
// creationTimestamp, generation), the whole status block, and the five
// reserved relationship labels. Two desired objects that differ only in
// those fields hash equal.
func ObjectHash(obj *unstructured.Unstructured) (string, error) {
	clone := obj.DeepCopy()
	unstructured.RemoveNestedField(clone.Object, "metadata", "resourceVersion")
	unstructured.RemoveNestedField(clone.Object, "metadata", "uid")
	unstructured.RemoveNestedField(clone.Object, "metadata", "creationTimestamp")
	unstructured.RemoveNestedField(clone.Object, "metadata", "generation")
	unstructured.RemoveNestedField(clone.Object, "status")

	labels := clone.GetLabels()
	if len(labels) > 0 {
		for _, reserved := range legionv1.ReservedLabels {
			delete(labels, reserved)
		}
		if len(labels) == 0 {
			// Drop the key entirely so an object whose only labels were
			// reserved ones serializes the same as one with no labels.
			labels = nil
		}
		clone.SetLabels(labels)
	}

	// encoding/json (wrapped by apimachinery's util/json) sorts map keys,
	// so two semantically equal objects always serialize identically.
	raw, err := json.Marshal(clone.Object)
	if err != nil {
		return "", err
	}

	sum := sha1.Sum(raw) // nolint:gosec
	return hex.EncodeToString(sum[:]), nil
}

// RevisionOf returns the child-revision label recorded on an observed
// child, or "" if it was never set (e.g. a child the operator didn't
// create).
func RevisionOf(obj *unstructured.Unstructured) string {
	return obj.GetLabels()[legionv1.LabelChildRevision]
}
