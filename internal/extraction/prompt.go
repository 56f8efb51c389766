package extraction

const systemPrompt = `You analyze scanned quarterly insurance settlement documents ` +
	`from medical practices. You respond with a single JSON object and nothing else.`

const extractionPrompt = `Extract the following fields from this settlement document and ` +
	`respond with exactly one JSON object:

{
  "year": <four digit settlement year or null>,
  "quarter": <settlement quarter 1-4 or null>,
  "total_amount": <total settlement amount as a number with two decimals or null>,
  "patient_count": <number of patients or null>,
  "case_count": <number of billed cases or null>,
  "region": <issuing regional association or null>
}

Use null for any field the document does not state. Never guess a quarter
from context; report it only when the document names it explicitly.`
