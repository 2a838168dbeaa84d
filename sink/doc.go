/*
Package sink turns the result sets of batch runs into artifacts and puts them
into stores.

There is one artifact per classification that has at least one address, named
after the classification ("valid.txt", "syntax.txt", "domain.txt",
"server.txt"), listing one address per line. Classifications without addresses
get no (empty) artifacts; instead, [Report] lists them as having no results.

Artifacts can be put into a [MemoryStore], a directory using a [DirStore], or
an S3 bucket using an [S3Store].
*/
package sink
