/*
Package scanner detects secret-shaped byte sequences in a potentially
unbounded stream delivered in arbitrary chunk sizes, without holding the
whole stream in memory.

# Catalog as data

The pattern catalog (bearer tokens, OpenAI/Google/GitHub/AWS key shapes,
PEM private key headers, credentialed URLs) is a plain table, not a type
hierarchy. Adding a pattern is adding a row to Catalog.

# Streaming algorithm

A Scanner keeps an in-memory tail of the last tailWindow bytes seen. Each
Scan(chunk) call searches tail‖chunk for every pattern in the catalog,
reports only matches that start at or after the already-reported offset,
advances that offset, and then truncates tail‖chunk down to the last
tailWindow bytes to become the new tail. Finalize searches whatever tail
remains one last time, for a match that landed wholly inside the
carried-over region at end of stream.

The raw matched bytes are never retained anywhere in this package's public
surface — only the pattern name and a line/column position are reported,
so nothing downstream of a Scanner can recover a secret through it.
*/
package scanner
