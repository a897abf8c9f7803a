// Command reel runs the Reel analysis service and its admin tooling.
package main

func main() {
	Execute()
}
