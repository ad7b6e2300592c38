package examples

// DefaultCorpus returns the built-in sales analytics examples used
// when no corpus file is configured. The SQL targets the demo
// warehouse tables.
func DefaultCorpus() []Example {
	return []Example{
		{
			Question: "show total retail volume in financial year 2024",
			SQL: `SELECT SUM(b.retail_volume) AS "Total Retail Volume"
FROM main.billing_data b
WHERE b.date BETWEEN DATE '2024-04-01' AND DATE '2025-03-31';`,
			Context: "Table: main.billing_data | Columns: date, retail_volume | Vehicle retail volume by date.",
		},
		{
			Question: "get monthly test drives for 2024",
			SQL: `SELECT strftime(b.date, '%B %Y') AS "Month",
       SUM(b.test_drive) AS "Total Test Drives"
FROM main.billing_data b
WHERE b.date BETWEEN DATE '2024-04-01' AND DATE '2025-03-31'
GROUP BY "Month"
ORDER BY MIN(b.date);`,
			Context: "Table: main.billing_data | Columns: date, test_drive | Test drives conducted per month.",
		},
		{
			Question: "show total bookings and billings for model XUV700",
			SQL: `SELECT p.model_name AS "Model Name",
       SUM(b.open_booking) AS "Total Bookings",
       SUM(b.billing_volume) AS "Total Billings"
FROM main.billing_data b
JOIN main.product_hierarchy p ON b.model_id = p.model_id
WHERE LOWER(p.model_name) = LOWER('XUV700')
  AND b.date BETWEEN DATE '2024-04-01' AND DATE '2025-03-31'
GROUP BY p.model_name;`,
			Context: "Table: main.billing_data, main.product_hierarchy | Columns: model_id, open_booking, billing_volume, model_name | Bookings and billings for one model.",
		},
		{
			Question: "What is the total retail volume for North in Jul 2024",
			SQL: `SELECT SUM(b.retail_volume) AS "Total Retail Volume"
FROM main.billing_data b
JOIN main.sales_person_hierarchy s ON b.rsm_id = s.rsm_id
WHERE s.zone_name = 'North'
  AND b.date BETWEEN DATE '2024-07-01' AND DATE '2024-07-31';`,
			Context: "Table: main.billing_data, main.sales_person_hierarchy | Columns: rsm_id, retail_volume, zone_name, date | Retail volume for one zone and month.",
		},
		{
			Question: "Get the monthly billing volume for each model in 2024",
			SQL: `SELECT p.model_name AS "Model Name",
       strftime(b.date, '%B %Y') AS "Month",
       SUM(b.billing_volume) AS "Total Billing Volume"
FROM main.billing_data b
JOIN main.product_hierarchy p ON b.model_id = p.model_id
WHERE b.date BETWEEN DATE '2024-04-01' AND DATE '2025-03-31'
GROUP BY p.model_name, "Month"
ORDER BY p.model_name, MIN(b.date);`,
			Context: "Table: main.billing_data, main.product_hierarchy | Columns: model_id, billing_volume, model_name, date | Monthly billing volume per model.",
		},
		{
			Question: "Show total test drives for each zone in financial year 2024",
			SQL: `SELECT s.zone_name AS "Zone Name",
       SUM(b.test_drive) AS "Total Test Drives"
FROM main.billing_data b
JOIN main.sales_person_hierarchy s ON b.rsm_id = s.rsm_id
WHERE b.date BETWEEN DATE '2024-04-01' AND DATE '2025-03-31'
GROUP BY s.zone_name
ORDER BY "Total Test Drives" DESC;`,
			Context: "Table: main.billing_data, main.sales_person_hierarchy | Columns: rsm_id, test_drive, zone_name, date | Test drives per zone for a financial year.",
		},
		{
			Question: "Compare monthly retail volume growth for North zone between 2023 and 2024",
			SQL: `WITH monthly_sales AS (
    SELECT s.zone_name,
           strftime(b.date, '%B %Y') AS month,
           date_trunc('month', b.date) AS month_start,
           SUM(b.retail_volume) AS retail_volume
    FROM main.billing_data b
    JOIN main.sales_person_hierarchy s ON b.rsm_id = s.rsm_id
    WHERE s.zone_name = 'North'
      AND b.date BETWEEN DATE '2023-04-01' AND DATE '2025-03-31'
    GROUP BY s.zone_name, month, month_start
)
SELECT month AS "Month",
       retail_volume AS "Current Retail Volume",
       LAG(retail_volume) OVER (ORDER BY month_start) AS "Previous Retail Volume",
       (retail_volume - LAG(retail_volume) OVER (ORDER BY month_start))
           / LAG(retail_volume) OVER (ORDER BY month_start) * 100 AS "Growth Percentage"
FROM monthly_sales
ORDER BY month_start;`,
			Context: "Table: main.billing_data, main.sales_person_hierarchy | Columns: rsm_id, retail_volume, zone_name, date | Month-over-month retail volume growth for one zone.",
		},
	}
}
