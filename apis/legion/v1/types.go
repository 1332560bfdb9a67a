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

// Package v1 defines the VCS and ModelTraining custom resource schemas
// reconciled by the legion-operator controllers.
package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// GroupName is the API group all legion custom resources live under.
const GroupName = "legion.legion-platform.org"

// Version is the only served version of these resources.
const Version = "v1"


// VCS defines a version-control source: a repository URI, a default
// ref to build from, and an optional base64-encoded private key used
// to check it out.
type VCS struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`

	Spec   VCSSpec   `json:"spec"`
	Status VCSStatus `json:"status,omitempty"`
}

// VCSSpec is the desired state of a VCS resource.
type VCSSpec struct {
	// URI is the repository location, e.g. git@host:org/repo.git
	URI string `json:"uri"`

	// DefaultRef is the branch/tag/sha checked out when a ModelTraining
	// does not set customVcsBranch.
	DefaultRef string `json:"defaultRef"`

	// PrivateKey is a base64-encoded SSH private key, or empty if the
	// repository is public.
	PrivateKey string `json:"privateKey,omitempty"`
}

// VCSStatus carries no fields today; reserved for forward compatibility.
type VCSStatus struct{}


// VCSList is a collection of VCS resources.
type VCSList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata"`
	Items           []VCS `json:"items"`
}


// ModelTraining defines a single training run: a toolchain, the image
// to run it in, the VCS source to check out, and the resources to
// grant the training pod.
type ModelTraining struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`

	Spec   ModelTrainingSpec   `json:"spec"`
	Status ModelTrainingStatus `json:"status,omitempty"`
}

// ModelTrainingSpec is the desired state of a ModelTraining resource.
type ModelTrainingSpec struct {
	// Toolchain names the training runtime, e.g. "python".
	Toolchain string `json:"toolchain"`

	// Image is the container image the training pod runs.
	Image string `json:"image"`

	// VCS names the VCS resource (same namespace) to check out.
	VCS string `json:"vcs"`

	// CustomVcsBranch overrides the VCS resource's defaultRef.
	CustomVcsBranch string `json:"customVcsBranch,omitempty"`

	// Entrypoint is a repo-relative path to the training script/notebook.
	Entrypoint string `json:"entrypoint"`

	// Arguments are decoded from the spec but are not added to the
	// training pod's command, so the entrypoint does not receive them.
	Arguments []string `json:"arguments,omitempty"`

	// Resources declares the limits the training pod's container is given.
	Resources ModelTrainingResources `json:"resources"`

	// Parameters are free-form key/value pairs. They are decoded from the
	// spec but are not passed into the training pod.
	Parameters map[string]string `json:"parameters,omitempty"`
}

// ModelTrainingResources declares the CPU/RAM limits for a training pod.
type ModelTrainingResources struct {
	CPU string `json:"cpu"`
	RAM string `json:"ram"`
}

// ModelTrainingState is the coarse lifecycle state surfaced on status.
type ModelTrainingState string

const (
	// ModelTrainingStateUnknown means reconciled but no observation of
	// the training pod has been made yet.
	ModelTrainingStateUnknown ModelTrainingState = "Unknown"

	// ModelTrainingStateRunning means the training pod is Pending or Running.
	ModelTrainingStateRunning ModelTrainingState = "Running"

	// ModelTrainingStateSucceeded means the training pod exited 0.
	ModelTrainingStateSucceeded ModelTrainingState = "Succeeded"

	// ModelTrainingStateFailed means either the training pod failed or the
	// handler could not compute a desired state (e.g. missing VCS).
	ModelTrainingStateFailed ModelTrainingState = "Failed"
)

// ModelTrainingStatus reports the last reconciled state back onto the
// owning resource. No secrets or stack traces are ever written here.
type ModelTrainingStatus struct {
	State   ModelTrainingState `json:"state,omitempty"`
	Result  string             `json:"result,omitempty"`
	Failure string             `json:"failure,omitempty"`
}


// ModelTrainingList is a collection of ModelTraining resources.
type ModelTrainingList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata"`
	Items           []ModelTraining `json:"items"`
}
