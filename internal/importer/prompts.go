package importer

import (
	"strings"
)

// Income source types the model may assign to money coming in.
var incomeSourceTypes = []string{
	"Salary",
	"Consulting",
	"Freelance",
	"Rental Income",
	"Dividends",
	"Interest",
	"Other",
}

// Expense categories and their subcategories. They are the names the tax
// categorizer recognises.
var expenseCategories = []struct {
	name          string
	subcategories []string
}{
	{name: "Office Supplies"},
	{name: "Professional Services"},
	{name: "Software"},
	{name: "Equipment"},
	{name: "Business Meals"},
	{name: "Training"},
	{name: "Transportation", subcategories: []string{"Vehicle", "Gas", "Mileage", "Public Transit", "Airfare"}},
	{name: "Utilities", subcategories: []string{"Home Office", "Internet", "Phone"}},
	{name: "Insurance", subcategories: []string{"Health", "Liability", "Property"}},
	{name: "Charitable"},
	{name: "Medical"},
	{name: "Groceries"},
	{name: "Entertainment"},
	{name: "Uncategorized"},
}

// statementPrompt builds the full instruction text sent with a statement.
func statementPrompt() string {
	var b strings.Builder

	b.WriteString("You are a financial statement parser for personal and small business bank statements.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Parse ALL transactions in the attached statement.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a JSON array of objects.\n\n")

	b.WriteString("Each object must have these fields:\n")
	b.WriteString("- \"date\": string, ISO format \"YYYY-MM-DD\"\n")
	b.WriteString("- \"description\": string\n")
	b.WriteString("- \"amount\": number (positive for money IN, negative for money OUT)\n")
	b.WriteString("- \"source_type\": string for money IN (one of the income source types below), null for money OUT\n")
	b.WriteString("- \"client_name\": string or null, the payer for money IN\n")
	b.WriteString("- \"category\": string for money OUT (one of the categories below), null for money IN\n")
	b.WriteString("- \"subcategory\": string or null\n")
	b.WriteString("- \"tax_deductible\": boolean for money OUT, true when the expense is plausibly deductible\n\n")

	b.WriteString("Income source types:\n")
	for _, s := range incomeSourceTypes {
		b.WriteString("  - " + s + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Use ONLY the following Categories and Subcategories:\n\n")
	for _, c := range expenseCategories {
		b.WriteString(c.name + ":\n")
		if len(c.subcategories) == 0 {
			b.WriteString("  (no subcategories - use null)\n\n")
			continue
		}
		for _, s := range c.subcategories {
			b.WriteString("  - " + s + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Rules:\n")
	b.WriteString("- If the statement has separate \"paid out\" / \"paid in\" columns, convert to a single signed \"amount\".\n")
	b.WriteString("- Transfers between the user's own accounts are not income; skip them.\n")
	b.WriteString("- If you are unsure of a category, use \"Uncategorized\" and set \"tax_deductible\" to false.\n\n")
	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")

	return b.String()
}
