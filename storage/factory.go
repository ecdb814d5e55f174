package storage

import (
	"strconv"
	"strings"
)

// ForLocator selects the Storage implementation appropriate for
// locator's scheme:
//
//	s3://bucket/key          -> S3, bucket parsed out of the locator
//	hdfs://namenode[:port]/… -> DistributedFS, default port 9000
//	anything else            -> Local
//
// It returns the backend together with the path/key to pass to that
// backend's methods (the scheme and bucket/namenode prefix stripped),
// ported from the original createStorageForPath dispatch. A Distributed
// backend is returned unconnected; ForLocator never calls Connect.
func ForLocator(locator string) (backend Storage, resolvedPath string) {
	switch {
	case strings.HasPrefix(locator, "s3://"):
		bucket, key := splitS3Locator(locator)
		return NewS3(bucket, ""), key

	case strings.HasPrefix(locator, "hdfs://"):
		namenode, port, objPath := splitHDFSLocator(locator)
		return NewDistributedFS(namenode, port), objPath

	default:
		return NewLocal(), locator
	}
}

// splitHDFSLocator parses "hdfs://namenode[:port]/path" into its
// namenode, port and path parts. An unparsable or missing port falls
// back to DefaultNamenodePort, matching the original's catch-and-default
// behavior for a malformed port substring.
func splitHDFSLocator(locator string) (namenode string, port int, objPath string) {
	trimmed := locator[len("hdfs://"):]

	slash := strings.IndexByte(trimmed, '/')
	authority := trimmed
	if slash >= 0 {
		authority = trimmed[:slash]
		objPath = trimmed[slash:]
	}

	namenode = authority
	port = DefaultNamenodePort

	if colon := strings.IndexByte(authority, ':'); colon >= 0 {
		namenode = authority[:colon]
		if p, err := strconv.Atoi(authority[colon+1:]); err == nil {
			port = p
		}
	}
	if namenode == "" {
		namenode = "localhost"
	}
	return namenode, port, objPath
}
