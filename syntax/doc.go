/*
Package syntax implements the first verification stage: a fixed-pattern email
address syntax check. It is not RFC 5322 compliant and isn't meant to be.
*/
package syntax
