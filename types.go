package main

// ProjectStatus is the captured git state of one project.
type ProjectStatus struct {
	Name              string `json:"name"`
	Path              string `json:"path"`
	Exists            bool   `json:"exists"`
	IsRepository      bool   `json:"is_repository"`
	Branch            string `json:"branch,omitempty"`
	Commit            string `json:"commit,omitempty"`
	State             string `json:"state,omitempty"`
	TargetBranch      string `json:"target_branch,omitempty"`
	RemoteURL         string `json:"remote_url,omitempty"`
	ExpectedRemoteURL string `json:"expected_remote_url"`
}

// Status is the captured state of the whole fleet, in configuration order.
type Status struct {
	Projects []ProjectStatus `json:"projects"`
}
