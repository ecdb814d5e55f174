// Package storage adapts pipeline locators to file content: Local for
// plain paths, S3 and DistributedFS for s3:// and hdfs:// locators
// respectively, dispatched by ForLocator.
package storage
