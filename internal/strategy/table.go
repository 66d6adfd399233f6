package strategy

var table = map[Kind]Definition{
	AllCash: {
		Kind:          AllCash,
		Key:           "cash",
		Name:          "All Cash",
		Description:   "Traditional cash purchase - fastest and simplest",
		WhenToUse:     "High motivation, needs speed, wants certainty",
		Pros:          []string{"Fastest close", "No financing contingencies", "Simplest transaction"},
		Cons:          []string{"Requires capital", "Usually lowest price", "Limited flexibility"},
		TermsTemplate: "Purchase for $X cash, close in N days, seller nets $Y after mortgage, arrears and closing costs",
		Posture:       "Lead with certainty and speed; price is the concession the seller makes for a guaranteed close.",
		CalculationRules: []string{
			"Base purchase price = ARV x Max Cash Offer Percentage.",
			"Add closing costs to the purchase price so the seller nets their target amount.",
			"Cash at closing = purchase price - mortgage balance - arrears - closing costs.",
			"If cash at closing is negative the offer is NOT viable; only present cash offers when the math works for the seller.",
			"Higher weight (>50%): target 100-110% of the seller's cash request NET after all costs.",
			"Lower weight (<50%): target 80-95% of the seller's cash request NET after all costs.",
			"Equal weight (50%): target 95-100% of the seller's cash request.",
			"If the ARV-based figure gives far more than the seller's request, adjust the purchase price down to a reasonable amount.",
		},
		PairedVariantRule: "If both offers are All Cash, separate them by net-to-seller and closing speed, never by identical figures.",
	},
	SubjectTo: {
		Kind:          SubjectTo,
		Key:           "subject_to",
		Name:          "Subject-To (Handle The Mortgage Payments)",
		Description:   "Handle existing mortgage payments until refinance or resale",
		WhenToUse:     "Seller has equity, good loan terms, needs debt relief",
		Pros:          []string{"Low cash needed", "Leverage existing financing", "Can offer higher price"},
		Cons:          []string{"Due-on-sale risk", "Requires seller trust", "More complex"},
		TermsTemplate: "Take title subject to the existing loan of $M, cure arrears of $A, pay seller $C (at closing and/or deferred)",
		Posture:       "Sell debt relief and credit protection; cash to seller is sized to the stated request, not to ARV.",
		CalculationRules: []string{
			"Purchase price = mortgage balance + arrears.",
			"Cash to seller starts from the seller's cash request and is adjusted by weight.",
			"Split payments: the at-closing amount of a split offer must always be LESS than an upfront offer's closing amount.",
		},
		PairedVariantRule: "If both offers are Subject-To, the higher weight offer pays 90-100% of the cash request all at closing; " +
			"the lower weight offer pays 105-120% in total, split 40-50% at closing and the rest in 60 days. " +
			"Never give both offers the same total cash. With equal weights both pay 100% of the request upfront.",
	},
	LeaseOption: {
		Kind:          LeaseOption,
		Key:           "lease_option",
		Name:          "Lease Option",
		Description:   "Lease property with option to purchase later",
		WhenToUse:     "Low cash available, seller flexible on timing, needs income",
		Pros:          []string{"Minimal cash needed", "Control without ownership", "Time to improve property"},
		Cons:          []string{"No immediate ownership", "Monthly payments", "Seller retains title"},
		TermsTemplate: "Lease for $X/month with option to purchase for $Y within Z months",
		Posture:       "Position the lease as guaranteed monthly relief; the option price rewards the seller's patience.",
		CalculationRules: []string{
			"Monthly lease payment = current PITI (mortgage payment).",
			"Option price = mortgage balance + additional option price.",
			"Option term = the user-specified number of months.",
			"No upfront option fee or option payment at closing ($0).",
		},
		PairedVariantRule: "If both offers are Lease Option, vary the additional option price (80% and 120%).",
	},
	SellerFinancing: {
		Kind:          SellerFinancing,
		Key:           "seller_financing",
		Name:          "Seller Financing",
		Description:   "Seller acts as the bank and carries a note",
		WhenToUse:     "Seller owns free and clear, wants income stream, flexible",
		Pros:          []string{"Creative terms possible", "Lower down payment", "Seller gets interest"},
		Cons:          []string{"Seller retains lien", "Monthly payments", "Requires seller trust"},
		TermsTemplate: "Pay seller $X/month, seller continues paying their mortgage, buyer controls the property",
		Posture:       "Frame the seller as the bank earning a spread; stress the reliability of the monthly check.",
		CalculationRules: []string{
			"This is a WRAP: the seller keeps the existing mortgage, the buyer pays the seller, the seller pays the mortgage.",
			"Monthly payment to seller = PITI + monthly payment markup.",
			"Purchase price = mortgage balance + additional purchase price.",
			"Interest rate and term match the seller's existing note.",
		},
		PairedVariantRule: "If both offers are Seller Financing, vary the markup and additional price (80% and 120%).",
	},
	Hybrid: {
		Kind:          Hybrid,
		Key:           "hybrid",
		Name:          "Hybrid (Cash + Terms)",
		Description:   "Combination of cash and creative financing",
		WhenToUse:     "Moderate motivation, some cash available, needs flexibility",
		Pros:          []string{"Balanced approach", "Flexible structure", "Appeals to more sellers"},
		Cons:          []string{"More complex", "Requires negotiation", "Medium cash needed"},
		TermsTemplate: "Pay $D down at closing plus terms on the balance of $B over N months",
		Posture:       "Offer a middle path: some certainty now, more value over time.",
		CalculationRules: []string{
			"Down payment must fit within the investor's available cash.",
			"Balance = purchase price - down payment, carried on stated terms.",
		},
		PairedVariantRule: "If both offers are Hybrid, trade a larger down payment against a higher total price.",
	},
}
