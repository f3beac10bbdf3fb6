package extraction

// statementPrompt is the instruction sent to the schema constrained provider
const statementPrompt = `You are analyzing a bank statement. Carefully read every page and extract the transaction table.

For every transaction return:
- "date": the posting date in ISO 8601 format (YYYY-MM-DD)
- "description": the transaction narrative exactly as printed
- "amount": the transaction amount as a positive number without currency symbols
- "type": "credit" for money in, "debit" for money out
- "balance": the running balance after the transaction, if the statement prints one

Also return "accountInfo" with the bank name, the account number and the statement period ("from" and "to", YYYY-MM-DD) when they are printed.

Keep the transactions in the order they appear on the statement. Do not invent transactions. If the document is not a bank statement, return an empty transactions array.`

// tableEnvelopeKey is the JSON key the text provider wraps its table in
const tableEnvelopeKey = "tableData"

// tableSystemPrompt asks the text provider for a Markdown table in a JSON envelope
const tableSystemPrompt = `You are an expert at reading bank statements. Extract every transaction from the attached document as a Markdown table.

Use only these columns, in this order: Date | Description | Debit | Credit | Running Balance.
Omit any column that does not appear in the source document.
Write every date as YYYY-MM-DD. When a row prints no year, take it from the statement period.
Write amounts as plain numbers without currency symbols or thousands separators, using a dot for decimals.

Return ONLY a JSON object of the form {"tableData": "<markdown table>"} with the table as a single string value.
Do not add any text before or after the JSON.`

// tableUserPrompt accompanies the document in the user message
const tableUserPrompt = "Extract the transaction table from this bank statement."
