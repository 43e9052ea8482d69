package mongo

const (
	store    = "transly"
	jobTable = "jobs"
)

var indexData = []IndexData{
	newIndexData(jobTable, []string{"ID"}, true),
	newIndexData(jobTable, []string{"ownerID", "createdAt"}, false)}
