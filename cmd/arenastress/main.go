// Command arenastress runs allocation churn workloads against the block
// arena library and reports allocator statistics.
package main

func main() {
	execute()
}
