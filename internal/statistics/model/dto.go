// Package model provides data transfer objects for statistics module.
package model

// Query narrows statistics to one repository. Empty means all repositories.
type Query struct {
	Repository string `form:"repository"`
}

// PullRequestStatistics represents statistics for pull requests.
type PullRequestStatistics struct {
	Total        int `json:"total"`
	Open         int `json:"open"`
	Draft        int `json:"draft"`
	Closed       int `json:"closed"`
	Merged       int `json:"merged"`
	ApprovedOpen int `json:"approved_open"`
	WithTryBuild int `json:"with_try_build"`
}

// PullRequestStatisticsResponse represents response for pull request statistics.
type PullRequestStatisticsResponse struct {
	Repository string                `json:"repository,omitempty"`
	Statistics PullRequestStatistics `json:"statistics"`
}

// BuildStatistics represents build counts per status.
type BuildStatistics struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Success   int `json:"success"`
	Failure   int `json:"failure"`
	Cancelled int `json:"cancelled"`
	Timeouted int `json:"timeouted"`
}

// BuildStatisticsResponse represents response for build statistics.
type BuildStatisticsResponse struct {
	Repository string          `json:"repository,omitempty"`
	Statistics BuildStatistics `json:"statistics"`
}
