package main

import "github.com/expenseflow/expense-workflow/cmd"

func main() {
	cmd.Execute()
}
