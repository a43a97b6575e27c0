// Command emberctl is a thin CLI front end over the docstore engine: a
// standalone demonstration of opening a store and running insert/find/
// update/remove/index/compact/stats against it from the shell.
package main

func main() {
	Execute()
}
