// Command segsim runs scripted or interactive sessions against the segmented memory allocator.
package main

func main() {
	execute()
}
