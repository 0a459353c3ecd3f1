package kinto

import "net/url"

func esc(s string) string {
	return url.PathEscape(s)
}

func rootPath() string { return "/" }

func bucketsPath() string { return "/buckets" }

func bucketPath(bid string) string { return "/buckets/" + esc(bid) }

func collectionsPath(bid string) string { return bucketPath(bid) + "/collections" }

func collectionPath(bid, cid string) string { return collectionsPath(bid) + "/" + esc(cid) }

func groupsPath(bid string) string { return bucketPath(bid) + "/groups" }

func groupPath(bid, gid string) string { return groupsPath(bid) + "/" + esc(gid) }

func recordsPath(bid, cid string) string { return collectionPath(bid, cid) + "/records" }

func recordPath(bid, cid, rid string) string { return recordsPath(bid, cid) + "/" + esc(rid) }

func attachmentPath(bid, cid, rid string) string { return recordPath(bid, cid, rid) + "/attachment" }

func historyPath(bid string) string { return bucketPath(bid) + "/history" }

func permissionsPath() string { return "/permissions" }

func batchPath() string { return "/batch" }
