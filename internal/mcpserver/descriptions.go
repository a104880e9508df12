package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and what comes back.

func describeCallGraph() string {
	return `Unfolds the call graph of fixed-form source files depth-first from the main program.

USE WHEN:
- Tracing which routines a program reaches and in what order
- Finding calls to routines that are not defined in the file (external)
- Spotting recursion between subroutines and functions
- Finding routines that nothing reaches from the main program

INTERPRETING RESULTS:
- Each entry is one call site: name, depth below main, and the line of the call
- resolved=false: callee is not defined in the file (library or another file)
- recursive=true: callee is already on the current path and is not expanded again
- truncated=true: max_depth was reached and the callee has calls of its own
- Calls via "call name(...)" are explicit; name(...) inside an expression is a reference
- Array indexing on known variables is never reported as a call
- PageRank > average: routine is called from many places, changes ripple widely
- reachable=false: routine is dead unless called from another file

METRICS RETURNED:
- call_tree: entries in depth-first order
- mermaid (optional): flowchart, dotted arrows for expression references
- metrics (optional): per-node in/out degree, PageRank, reachability; density, unreachable routines`
}

func describeSignatures() string {
	return `Lists subroutine and function signatures and the parameters each subroutine reassigns.

USE WHEN:
- Finding side effects: arguments are passed by reference, so reassigned parameters are outputs
- Reviewing a routine's interface before changing it
- Auditing which subroutines modify their inputs (altered_only=true)

INTERPRETING RESULTS:
- params: declared parameters in header order, duplicates removed
- altered: parameters assigned anywhere in a subroutine body, in first-assignment order
- Functions never report altered parameters
- An element assignment such as a(i) = ... counts as altering a
- Parameters modified only through a nested call are not detected

METRICS RETURNED:
- Per-routine: name, kind (subroutine or function), header line, params, altered`
}

func describeBlocks() string {
	return `Splits fixed-form source files into the main program and one block per routine.

USE WHEN:
- Getting oriented in a large legacy source file
- Finding where each routine starts and ends
- Listing the variables a routine declares or assigns (include_variables=true)

INTERPRETING RESULTS:
- The main block is everything before the first routine header and may be empty
- Line spans are 1-based and inclusive; each block runs to the line before the next header
- Variables: parameters first, then declared names, then assigned names, in first-seen order
- High call counts with few variables usually mean a driver routine

METRICS RETURNED:
- Per-block: name, kind, start_line, end_line, variable_count, calls
- Optional variable lists per block`
}
