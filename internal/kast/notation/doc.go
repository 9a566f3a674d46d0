/*
Package notation reads the abstract term notation used by rule databases,
claims and lemma files.

# Terms

	42  -7  "text"  true  false     tokens
	X  N:Int  ?Y  _                 variables (uppercase, existential, wildcard)
	foo  pred1(N)  f(A, B)          symbol applications
	.K  A ~> B                      K sequences
	.Map  K |-> V  M1 M2 Rest       maps, juxtaposed with an optional frame
	<k> ... </k>  <a> .. </a> <b> .. </b>
	                                cells and cell fragments
	A => B                          rewrite, only inside rule and claim bodies

Builtin operators, loosest first: =>, ~>, juxtaposition, |->, orBool,
andBool, notBool, comparisons (==K =/=K ==Int =/=Int <Int <=Int >Int
>=Int), +Int -Int, then *Int /Int %Int.

Trailing dots inside a cell stand for an anonymous frame: the rest of the
K sequence, of the map, or of the cell fragment held by the cell.
*/
package notation
