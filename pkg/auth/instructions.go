package auth

import (
	"fmt"
	"strings"
)

// ShowTokenExtractionGuide displays step-by-step instructions for extracting a Discord token
func ShowTokenExtractionGuide() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("📚 DISCORD TOKEN EXTRACTION GUIDE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Println("This tool needs your Discord authorization token to read channel history.")
	fmt.Println("Follow these steps to extract it from your browser:")
	fmt.Println()

	// Browser selection
	fmt.Println("🌐 STEP 1: Open Discord in your browser")
	fmt.Println("   - Go to https://discord.com/app")
	fmt.Println("   - Log in with your account")
	fmt.Println("   - Open any channel so the client starts making API calls")
	fmt.Println()

	// Developer tools
	fmt.Println("🔧 STEP 2: Open Developer Tools")
	fmt.Println("   • Chrome/Edge/Brave: Press F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Println("   • Firefox: Press F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Println("   • Safari: Enable Developer menu in Preferences, then Cmd+Option+I")
	fmt.Println()

	// Network tab
	fmt.Println("📡 STEP 3: Go to the Network tab")
	fmt.Println("   - Click on the 'Network' tab in Developer Tools")
	fmt.Println("   - Type 'api' into the filter box")
	fmt.Println("   - If the list is empty, switch channels once to trigger a request")
	fmt.Println()

	// Find the token
	fmt.Println("🔑 STEP 4: Find your token")
	fmt.Println("   1. Click on any request going to 'discord.com/api'")
	fmt.Println("   2. Go to the 'Headers' section")
	fmt.Println("   3. Scroll to 'Request Headers'")
	fmt.Println("   4. Find the 'authorization:' line")
	fmt.Println("   5. Copy the full value of that header")
	fmt.Println()

	// Token details
	fmt.Println("📋 STEP 5: What the token looks like:")
	fmt.Println("   ┌───────────────┬──────────────────────────────────────────────┐")
	fmt.Println("   │ Header Name   │ What it looks like                           │")
	fmt.Println("   ├───────────────┼──────────────────────────────────────────────┤")
	fmt.Println("   │ authorization │ Long string with two dots                    │")
	fmt.Println("   │               │ Example: MTA4NjY...G4rYQ.kPq3vL...           │")
	fmt.Println("   └───────────────┴──────────────────────────────────────────────┘")
	fmt.Println()

	// Tips
	fmt.Println("💡 TIPS:")
	fmt.Println("   • Copy the ENTIRE value, with no surrounding quotes or spaces")
	fmt.Println("   • Logging out of Discord invalidates the token, so stay logged in")
	fmt.Println("   • Changing your password also invalidates it")
	fmt.Println()

	// Security warning
	fmt.Println("⚠️  SECURITY WARNING:")
	fmt.Println("   • This token gives FULL access to your Discord account")
	fmt.Println("   • NEVER share it with anyone or commit it to a repository")
	fmt.Println("   • Store it securely (this tool encrypts it)")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide() {
	fmt.Println("\n🔑 Quick Guide: F12 → Network tab → filter 'api' → Click any discord.com/api request → Headers → authorization")
	fmt.Println("   Need: the full authorization header value")
	fmt.Println("   Type 'help' for detailed instructions")
}
