// Package analyze provides the business boundary for sift's backlog analysis
// runs. It defines the Service (single-run lifecycle, async dispatch, batched
// fan-out over the classifier) and the run domain models.
package analyze
