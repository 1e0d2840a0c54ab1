// Package sql provides the database-agnostic Expression Tree and a
// low-level Driver/Tx pair that executes compiled statements.
//
// # Expression Tree
//
// Every node in the tree renders through the package-level
// ToSQL(node, dialect), which returns rendered text plus a parameter
// tuple. Nodes are immutable after construction, literal values are
// always parameter-bound (never inlined), and ToSQL is deterministic and
// side-effect-free for a given dialect:
//
//	limit := int64(1)
//	sel := sql.Select(sql.C("id"), sql.C("name")).
//	    FromTable("users").
//	    Where_(sql.GE(sql.C("age"), 25)).
//	    OrderBy_(sql.Desc(sql.C("age"))).
//	    LimitOffset(&limit, nil)
//	text, args, err := sql.ToSQL(sel, postgres.Dialect{})
//
// # Predicates
//
// Comparison, logical, LIKE, IN, BETWEEN and NULL-check predicates
// compose via And/Or/Not:
//
//	sql.And(sql.EQ(sql.C("status"), "active"), sql.GT(sql.C("age"), 18))
//
// # Statements
//
// SelectStatement, InsertStatement, UpdateStatement and DeleteStatement
// cover the SQL surface in spec.md §6, including CTEs (WithClause), set
// operations (UNION/INTERSECT/EXCEPT), window functions and ON CONFLICT.
//
// # Driver
//
// Driver and its Tx wrap database/sql with the dialect.Driver contract,
// adapted from Ent's dialect/sql package: statements run through them
// apply session variables attached via context (WithVar), and Tx begins/commits/rolls
// back a single, non-nested database/sql transaction. Nested transaction
// and savepoint semantics are layered on top by package backend.
package sql
