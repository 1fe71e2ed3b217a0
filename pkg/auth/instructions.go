package auth

import (
	"fmt"
	"strings"
)

// ShowCredentialExtractionGuide displays step-by-step instructions for
// capturing Lofter credentials from the mobile app or browser session.
func ShowCredentialExtractionGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("LOFTER CREDENTIAL EXTRACTION GUIDE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("This tool needs a Lofter credential to access the mobile API.")
	fmt.Println("Any one of these four kinds works:")
	fmt.Println()
	fmt.Println("   Authorization            token issued to the mobile app")
	fmt.Println("   LOFTER-PHONE-LOGIN-AUTH  token issued after phone-number login")
	fmt.Println("   LOFTER_SESS              session cookie from the Lofter site")
	fmt.Println("   NTES_SESS                NetEase-wide session cookie")
	fmt.Println()

	fmt.Println("STEP 1: Capture traffic from the Lofter app")
	fmt.Println("   - Run a local HTTPS proxy (mitmproxy, Charles, HttpCanary)")
	fmt.Println("   - Point your phone at the proxy and open the Lofter app")
	fmt.Println("   - Look for requests to api.lofter.com")
	fmt.Println()

	fmt.Println("STEP 2: Copy the credential from the request headers")
	fmt.Println("   - Token kinds appear as their own header, e.g.")
	fmt.Println("       Authorization: <long string>")
	fmt.Println("       LOFTER-PHONE-LOGIN-AUTH: <long string>")
	fmt.Println("   - Session kinds appear inside the Cookie header, e.g.")
	fmt.Println("       Cookie: LOFTER_SESS=<value>; NTES_SESS=<value>")
	fmt.Println()

	fmt.Println("STEP 3: Save it with this tool")
	fmt.Println("   lofterscraper auth set <kind>")
	fmt.Println()

	fmt.Println("TIPS:")
	fmt.Println("   - Copy the ENTIRE value, without quotes or trailing semicolons")
	fmt.Println("   - Tokens expire; refresh them when requests start failing with auth errors")
	fmt.Println()

	fmt.Println("SECURITY WARNING:")
	fmt.Println("   - These credentials give FULL access to your Lofter account")
	fmt.Println("   - NEVER share them with anyone")
	fmt.Println("   - Store them securely (this tool encrypts them)")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide() {
	fmt.Println("\nQuick guide: proxy the Lofter app, find an api.lofter.com request,")
	fmt.Println("   copy the Authorization or LOFTER-PHONE-LOGIN-AUTH header value,")
	fmt.Println("   or the LOFTER_SESS/NTES_SESS cookie, then run: lofterscraper auth set <kind>")
}
