// Command wrapdemo serves a demo endpoint whose middleware stack is read
// from a configuration file.
package main

func main() {
	Execute()
}
