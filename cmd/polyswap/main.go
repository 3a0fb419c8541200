// Command polyswap runs the recyclables exchange service and its admin tools.
package main

func main() {
	Execute()
}
